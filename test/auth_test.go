package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mstanic/bloghaus/internal/users"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *IntegrationTestSuite) registerUser(
	ctx context.Context,
	email, password, name string,
) users.LoginResponse {
	registerReqJson, err := json.Marshal(registerRequest{
		Email:    email,
		Password: password,
		Name:     name,
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
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Require().NotEmpty(respBytes)

	var registerResp users.LoginResponse
	s.Require().NoError(json.Unmarshal(respBytes, &registerResp))
	s.Require().NotEmpty(registerResp.Token)
	s.Require().NotNil(registerResp.User)

	return registerResp
}

func (s *IntegrationTestSuite) loginUser(
	ctx context.Context,
	email, password string,
) (*http.Response, error) {
	loginReqJson, err := json.Marshal(loginRequest{
		Email:    email,
		Password: password,
	})
	s.Require().NoError(err)

	req, err := http.NewRequestWithContext(
		ctx,
		"POST", fmt.Sprintf("%s/login", serverEndpoint),
		bytes.NewBuffer(loginReqJson),
	)
	s.Require().NoError(err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	return s.httpClient.Do(req)
}
