package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domains/user/model"
	"storefront/internal/infrastructure/api"
)

const loginPath = "/auth/token/"

// Authenticator signs the shopper in against the API and stores the tokens.
type Authenticator struct {
	api     api.Requester
	session *Session
}

func NewAuthenticator(requester api.Requester, session *Session) *Authenticator {
	return &Authenticator{api: requester, session: session}
}

func (a *Authenticator) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return fmt.Errorf("email and password are required")
	}

	var resp model.LoginResponse
	if err := a.api.Do(ctx, http.MethodPost, loginPath, model.LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	return a.session.SignIn(ctx, resp.Access, resp.Refresh)
}

func (a *Authenticator) Logout(ctx context.Context) error {
	return a.session.Clear(ctx)
}
