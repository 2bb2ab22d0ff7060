package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/mstanic/bloghaus/internal/auth"
	"github.com/mstanic/bloghaus/internal/middleware"
	"github.com/mstanic/bloghaus/internal/telemetry/metrics"
	"github.com/mstanic/bloghaus/pkg"
)

const minPasswordLength = 5

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type usersRepo interface {
	Add(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
	Count(ctx context.Context) (int, error)
}

type Handler struct {
	repo        usersRepo
	authService *auth.Service
	metrics     *metrics.Manager
}

func NewUsersHandler(
	repo usersRepo,
	authService *auth.Service,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:        repo,
		authService: authService,
		metrics:     metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
) {
	// rate limit the auth endpoints to prevent abuse
	rateLimit := middleware.RateLimit(rateLimiter, "auth", allowedPerMin, handler.metrics)

	registerRouter := mainRouter.Path("/register").Subrouter()
	registerRouter.Methods("POST", "OPTIONS").HandlerFunc(handler.handleRegister).Name("register")
	registerRouter.Use(rateLimit)

	loginRouter := mainRouter.Path("/login").Subrouter()
	loginRouter.Methods("POST", "OPTIONS").HandlerFunc(handler.handleLogin).Name("login")
	loginRouter.Use(rateLimit)

	logoutRouter := mainRouter.Path("/logout").Subrouter()
	logoutRouter.Methods("GET", "OPTIONS").HandlerFunc(handler.handleLogout).Name("logout")
	logoutRouter.Use(rateLimit)
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var registerReq RegisterRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
			log.Errorf("register, unmarshal json params: %s", err)
			http.Error(w, "register failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("register failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		registerReq = RegisterRequest{
			Email:    r.Form.Get("email"),
			Password: r.Form.Get("password"),
			Name:     r.Form.Get("name"),
		}
	}

	if registerReq.Name == "" {
		http.Error(w, "error, name empty", http.StatusBadRequest)
		return
	}
	if _, err := mail.ParseAddress(registerReq.Email); err != nil {
		http.Error(w, "error, invalid email", http.StatusBadRequest)
		return
	}
	if len(registerReq.Password) < minPasswordLength {
		http.Error(w, "error, password too short", http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(registerReq.Password)
	if err != nil {
		log.Errorf("register failed, hash password: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	user := &User{
		Email:        registerReq.Email,
		Name:         registerReq.Name,
		PasswordHash: passwordHash,
	}

	if err := handler.repo.Add(r.Context(), user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			// already signed up, point the client to the login page
			w.Header().Set("Location", "/login")
			pkg.WriteResponse(
				w,
				pkg.ContentType.Text,
				"you already signed up with that email, please login",
				http.StatusFound,
			)
			return
		}
		log.Errorf("register failed: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	// registration logs the new user straight in
	token, err := handler.authService.Login(r.Context(), user.ID, time.Now())
	if err != nil {
		log.Errorf("register failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterRegisteredUsers.Inc()
	log.Tracef("new user %d: [%s] registered", user.ID, user.Email)

	handler.writeLoginResponse(w, token, user, http.StatusCreated)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var loginReq LoginRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
			log.Errorf("login, unmarshal json params: %s", err)
			http.Error(w, "login failed", http.StatusBadRequest)
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			log.Errorf("login failed, parse form error: %s", err)
			http.Error(w, "parse form error", http.StatusInternalServerError)
			return
		}
		loginReq = LoginRequest{
			Email:    r.Form.Get("email"),
			Password: r.Form.Get("password"),
		}
	}

	if loginReq.Email == "" {
		http.Error(w, "error, email empty", http.StatusBadRequest)
		return
	}
	if loginReq.Password == "" {
		http.Error(w, "error, password empty", http.StatusBadRequest)
		return
	}

	user, err := handler.repo.GetByEmail(r.Context(), loginReq.Email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Tracef("[email] failed login attempt for: %s", loginReq.Email)
			http.Error(w, "no user with that email", http.StatusUnauthorized)
			return
		}
		log.Errorf("login failed: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	if !pkg.CheckPasswordHash(loginReq.Password, user.PasswordHash) {
		log.Tracef("[password] failed login attempt for: %s", loginReq.Email)
		http.Error(w, "incorrect password", http.StatusUnauthorized)
		return
	}

	token, err := handler.authService.Login(r.Context(), user.ID, time.Now())
	if err != nil {
		log.Errorf("login failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterLogins.Inc()
	log.Tracef("user %d login success", user.ID)

	handler.writeLoginResponse(w, token, user, http.StatusOK)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	authToken := r.Header.Get(middleware.AuthTokenHeader)
	if authToken == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(r.Context(), authToken)
	if err != nil {
		log.Tracef("[failed logout] => %s: %s", r.URL.Path, err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	log.Printf("logout for [%s] success", authToken)

	// session cleared, back to the post list
	w.Header().Set("Location", "/")
	pkg.WriteResponse(w, pkg.ContentType.Text, "logged-out", http.StatusFound)
}

func (handler *Handler) writeLoginResponse(w http.ResponseWriter, token string, user *User, statusCode int) {
	loginRespJson, err := json.Marshal(LoginResponse{
		Token: token,
		User:  user,
	})
	if err != nil {
		log.Errorf("marshal login response error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, loginRespJson, statusCode)
}
