package platform

import (
	"context"
	"net/http"
)

// TokenGrant is the platform's response to a successful authentication.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       int64  `json:"user_id"`
}

// Login exchanges credentials for a token grant. The returned grant carries
// the user id the session layer needs to initialize the permission
// evaluator.
func (c *Client) Login(ctx context.Context, username, password string) (*TokenGrant, error) {
	body := map[string]string{"username": username, "password": password}
	var grant TokenGrant
	if err := c.do(ctx, http.MethodPost, "/api/token/user", nil, body, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// RefreshToken exchanges a refresh token for a fresh grant.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	body := map[string]string{"refresh_token": refreshToken}
	var grant TokenGrant
	if err := c.do(ctx, http.MethodPost, "/api/token/refresh", nil, body, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Ping checks that the platform API is reachable. Used by the health
// endpoint; any authenticated or unauthenticated 2xx on the version endpoint
// counts.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/version", nil, nil, nil)
}
