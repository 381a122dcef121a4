package api

import "context"

// Credentials is the login/register request body.
type Credentials struct {
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password"`
}

// TokenPair is the backend's auth response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Register creates an account and returns its first token pair.
func (c *Client) Register(ctx context.Context, creds Credentials) (TokenPair, error) {
	return c.authRequest(ctx, apiPrefix+"/auth/register", creds)
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, creds Credentials) (TokenPair, error) {
	return c.authRequest(ctx, apiPrefix+"/auth/login", creds)
}

// Refresh exchanges a refresh token for a fresh pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	body := struct {
		RefreshToken string `json:"refresh_token"`
	}{RefreshToken: refreshToken}
	return c.authRequest(ctx, apiPrefix+"/auth/refresh", body)
}

func (c *Client) authRequest(ctx context.Context, path string, body interface{}) (TokenPair, error) {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return TokenPair{}, err
	}
	var pair TokenPair
	if err := DecodeResponse(resp, &pair); err != nil {
		return TokenPair{}, err
	}
	return pair, nil
}
