package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"

	"spactl/internal/models"
)

// Register creates a new user account and returns the user and its token
func (c *Client) Register(ctx context.Context, creds models.SignUpCredentials) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/register", creds)
}

// Login authenticates the user with the server
func (c *Client) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error) {
	return c.authenticate(ctx, "/auth/login", creds)
}

// Logout notifies the server. Clearing the local token is the caller's job.
func (c *Client) Logout(ctx context.Context) error {
	return c.Post(ctx, "/auth/logout", nil, nil)
}

func (c *Client) authenticate(ctx context.Context, path string, creds any) (*models.AuthResponse, error) {
	var raw json.RawMessage
	if err := c.Post(ctx, path, creds, &raw); err != nil {
		return nil, err
	}

	auth, ok := parseAuthResponse(raw)
	if !ok {
		return nil, c.reject(http.MethodPost, path, &APIError{
			Message:    "no authentication token found in server response",
			StatusCode: http.StatusInternalServerError,
		})
	}
	return auth, nil
}

// parseAuthResponse reads {user, token}, tolerating the token under the
// common alternative names
func parseAuthResponse(raw []byte) (*models.AuthResponse, bool) {
	res := gjson.ParseBytes(raw)

	token := findAuthToken(res)
	if token == "" {
		return nil, false
	}

	auth := &models.AuthResponse{Token: token}
	if u := res.Get("user"); u.IsObject() {
		if err := json.Unmarshal([]byte(u.Raw), &auth.User); err != nil {
			return nil, false
		}
	}
	return auth, true
}

func findAuthToken(res gjson.Result) string {
	for _, path := range []string{"token", "accessToken", "access_token", "data.token"} {
		if v := res.Get(path); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}
