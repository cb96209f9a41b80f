package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Login exchanges credentials for an access token. It does not store the token.
func (c *Client) Login(ctx context.Context, username, password string) (model.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	path := "/auth/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), strings.NewReader(form.Encode()))
	if err != nil {
		return model.TokenResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var token model.TokenResponse
	if err := c.send(c.anonymous, req, path, &token); err != nil {
		return model.TokenResponse{}, err
	}
	if token.AccessToken == "" {
		return model.TokenResponse{}, fmt.Errorf("login response did not include an access token")
	}
	return token, nil
}

// CurrentUser returns the signed-in user.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var user model.User
	err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, nil, &user)
	return user, err
}
