package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tidwall/gjson"

	"spactl/internal/models"
)

// CurrentUser fetches the profile of the user owning the stored token
func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var raw json.RawMessage
	if err := c.Get(ctx, "/users/me", nil, &raw); err != nil {
		return nil, err
	}

	// Some backends wrap the profile as {"user": {...}}
	data := []byte(raw)
	if res := gjson.ParseBytes(data); !res.Get("id").Exists() && res.Get("user").IsObject() {
		data = []byte(res.Get("user").Raw)
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil || user.ID == "" {
		return nil, c.reject(http.MethodGet, "/users/me", &APIError{
			Message:    DefaultErrorMessage,
			StatusCode: http.StatusInternalServerError,
		})
	}
	return &user, nil
}
