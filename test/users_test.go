package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mstanic/bloghaus/internal/middleware"
	"github.com/mstanic/bloghaus/internal/users"
)

func (s *IntegrationTestSuite) TestLogin() {
	ctx := context.Background()

	resp, err := s.loginUser(ctx, "admin@bloghaus.net", "adminpass")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	var loginResp users.LoginResponse
	s.Require().NoError(json.Unmarshal(respBytes, &loginResp))
	s.NotEmpty(loginResp.Token)
	s.Require().NotNil(loginResp.User)
	s.Equal(1, loginResp.User.ID)
	s.Equal("Admin", loginResp.User.Name)
}

func (s *IntegrationTestSuite) TestLogin_wrongCredentials() {
	ctx := context.Background()

	resp, err := s.loginUser(ctx, "admin@bloghaus.net", "not-the-password")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(respBytes), "incorrect password")

	resp, err = s.loginUser(ctx, "nobody@bloghaus.net", "whatever")
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	respBytes, err = io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Contains(string(respBytes), "no user with that email")
}

func (s *IntegrationTestSuite) TestRegister_duplicateEmail() {
	ctx := context.Background()

	registerReqJson, err := json.Marshal(registerRequest{
		Email:    "reader@bloghaus.net",
		Password: "some-other-pass",
		Name:     "Reader Impostor",
	})
	s.Require().NoError(err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/register", serverEndpoint),
		bytes.NewBuffer(registerReqJson),
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	// already registered, gets pointed to the login page instead
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal("/login", resp.Header.Get("Location"))
}

func (s *IntegrationTestSuite) TestLogout() {
	ctx := context.Background()

	registerResp := s.registerUser(ctx, "flyby@bloghaus.net", "flybypass", "Fly By")

	req, err := http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/logout", serverEndpoint),
		nil,
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set(middleware.AuthTokenHeader, registerResp.Token)

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal("/", resp.Header.Get("Location"))

	// the token is dead now, a second logout cannot use it
	req, err = http.NewRequestWithContext(
		ctx,
		"GET", fmt.Sprintf("%s/logout", serverEndpoint),
		nil,
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set(middleware.AuthTokenHeader, registerResp.Token)

	resp, err = s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusFound, resp.StatusCode)
	s.Equal("/login", resp.Header.Get("Location"))
}
