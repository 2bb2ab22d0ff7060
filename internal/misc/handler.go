package misc

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mstanic/bloghaus/internal/telemetry/tracing"
	"github.com/mstanic/bloghaus/pkg"
)

type AboutResponse struct {
	Name  string `json:"name"`
	About string `json:"about"`
}

type ContactResponse struct {
	Email string `json:"email"`
}

type Handler struct {
	siteName     string
	aboutInfo    string
	contactEmail string
	versionInfo  string
}

func NewHandler(siteName, aboutInfo, contactEmail, versionInfo string) *Handler {
	return &Handler{
		siteName:     siteName,
		aboutInfo:    aboutInfo,
		contactEmail: contactEmail,
		versionInfo:  versionInfo,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/about", handler.handleAbout).Methods("GET").Name("about")
	mainRouter.HandleFunc("/contact", handler.handleContact).Methods("GET").Name("contact")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
}

func (handler *Handler) handleAbout(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.about")
	defer span.End()

	aboutBytes, err := json.Marshal(AboutResponse{
		Name:  handler.siteName,
		About: handler.aboutInfo,
	})
	if err != nil {
		log.Errorf("marshal about info error: %s", err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, aboutBytes)
}

func (handler *Handler) handleContact(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.contact")
	defer span.End()

	if userIP, err := pkg.ReadUserIP(r); err == nil {
		span.SetAttributes(attribute.String("user.ip", userIP))
		log.Tracef("contact page visited from: %s", userIP)
	}

	contactBytes, err := json.Marshal(ContactResponse{
		Email: handler.contactEmail,
	})
	if err != nil {
		log.Errorf("marshal contact info error: %s", err)
		http.Error(w, "", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, contactBytes)
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}
