package api

import (
	"context"
	"errors"
)

// ErrIncompleteLogin is returned when a 2xx login response lacks the token
// or the username.
var ErrIncompleteLogin = errors.New("login response missing accessToken or username")

// LoginResponse is the payload of a successful POST /auth/login.
type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	TokenType   string `json:"tokenType"`
	ExpiresIn   int64  `json:"expiresIn"`
	Username    string `json:"username"`
}

// Auth is the authentication collaborator.
type Auth struct {
	t Transport
}

// NewAuth creates an Auth collaborator on t.
func NewAuth(t Transport) *Auth {
	return &Auth{t: t}
}

// Login exchanges credentials for a bearer token.
func (a *Auth) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}{username, password}

	var resp LoginResponse
	if err := a.t.PostJSON(ctx, "/auth/login", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.Username == "" {
		return nil, ErrIncompleteLogin
	}
	return &resp, nil
}
