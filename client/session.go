package client

import (
	"context"
	"net/http"
)

type loginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type signupPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for an API token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var resp sessionResponse
	payload := loginPayload{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login/", nil, payload, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

// Signup registers a new account and returns its API token.
func (c *Client) Signup(ctx context.Context, username, email, password string) (string, error) {
	var resp sessionResponse
	payload := signupPayload{Username: username, Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/signup/", nil, payload, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}
