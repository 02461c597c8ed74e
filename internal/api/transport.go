package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"spactl/internal/logging"
	"spactl/internal/models"
)

const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// WithRequestID pins the request ID sent with requests made under ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID pinned on ctx, if any
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// authTransport attaches the stored bearer token and a request ID to
// every outgoing request
type authTransport struct {
	base   http.RoundTripper
	tokens *models.TokenStore
	log    *logrus.Logger
}

func newAuthTransport(base http.RoundTripper, tokens *models.TokenStore, log *logrus.Logger) *authTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &authTransport{base: base, tokens: tokens, log: log}
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	req = req.Clone(req.Context())

	token, err := t.tokens.GetToken()
	if err != nil {
		t.log.WithFields(logging.Err(err)).Debug("reading auth token failed, sending request without it")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	if req.Header.Get(RequestIDHeader) == "" {
		id := RequestIDFromContext(req.Context())
		if id == "" {
			id = uuid.NewString()
		}
		req.Header.Set(RequestIDHeader, id)
	}

	return t.base.RoundTrip(req)
}
