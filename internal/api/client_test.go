package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spactl/internal/logging"
	"spactl/internal/models"
	"spactl/internal/storage"
	"spactl/internal/testutil/fakebackend"
)

func newTestClient(t *testing.T, baseURL string) (*Client, *models.TokenStore) {
	t.Helper()
	tokens := models.NewTokenStore(storage.NewMemory())
	return New(Config{BaseURL: baseURL, Tokens: tokens, Timeout: 2 * time.Second}), tokens
}

func TestNew_Defaults(t *testing.T) {
	c := New(Config{})

	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)
	assert.NotNil(t, c.Tokens())
}

func TestClient_AttachesStoredToken(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.AddUser("ada@example.com", "password1", "Ada", "")
	token := srv.IssueToken("ada@example.com")

	c, tokens := newTestClient(t, srv.APIURL())

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)

	require.NoError(t, tokens.SaveToken(token))
	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	reqs := srv.RequestsTo("/users/me")
	require.Len(t, reqs, 2)
	assert.Empty(t, reqs[0].Authorization)
	assert.Equal(t, "Bearer "+token, reqs[1].Authorization)
}

func TestClient_ReadsTokenOnEveryRequest(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, tokens := newTestClient(t, srv.URL)
	ctx := context.Background()

	require.NoError(t, tokens.SaveToken("first"))
	require.NoError(t, c.Get(ctx, "/ping", nil, nil))
	require.NoError(t, tokens.SaveToken("second"))
	require.NoError(t, c.Get(ctx, "/ping", nil, nil))
	require.NoError(t, tokens.ClearToken())
	require.NoError(t, c.Get(ctx, "/ping", nil, nil))

	assert.Equal(t, []string{"Bearer first", "Bearer second", ""}, seen)
}

func TestClient_Headers(t *testing.T) {
	var got http.Header
	var query url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		query = r.URL.Query()
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL+"/")

	var out struct{ OK bool }
	require.NoError(t, c.Post(context.Background(), "things", map[string]string{"a": "b"}, &out))
	assert.True(t, out.OK)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.NotEmpty(t, got.Get(RequestIDHeader))

	ctx := WithRequestID(context.Background(), "req-123")
	require.NoError(t, c.Get(ctx, "/things", url.Values{"page": {"2"}}, nil))
	assert.Empty(t, got.Get("Content-Type"))
	assert.Equal(t, "req-123", got.Get(RequestIDHeader))
	assert.Equal(t, "2", query.Get("page"))
}

func TestClient_ErrorWithMessageAndFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Validation failed","errors":{"email":["email is taken"],"password":"too short"}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	err := c.Post(context.Background(), "/auth/register", map[string]string{}, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Validation failed", apiErr.Message)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
	assert.Equal(t, []string{"email is taken"}, apiErr.FieldErrors("email"))
	assert.Equal(t, []string{"too short"}, apiErr.FieldErrors("password"))
}

func TestClient_ErrorWithoutMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"html", "<html>bad gateway</html>"},
		{"empty", ""},
		{"json without message", `{"error":"nope"}`},
		{"json array", `["x"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, _ := newTestClient(t, srv.URL)
			err := c.Get(context.Background(), "/x", nil, nil)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, DefaultErrorMessage, apiErr.Message)
			assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
			assert.Nil(t, apiErr.Errors)
		})
	}
}

func TestClient_MessageList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":["email must be an email","password too short"]}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	err := c.Get(context.Background(), "/x", nil, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "email must be an email; password too short", apiErr.Message)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	c, _ := newTestClient(t, baseURL)
	err := c.Get(context.Background(), "/users/me", nil, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, NetworkErrorMessage, apiErr.Message)
	assert.Equal(t, StatusNetworkError, apiErr.StatusCode)
	assert.Equal(t, NetworkErrorMessage, apiErr.Error())
}

func TestClient_Timeout(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.Delay("/auth/login", 500*time.Millisecond)

	c := New(Config{BaseURL: srv.APIURL(), Timeout: 50 * time.Millisecond})
	_, err := c.Login(context.Background(), models.LoginCredentials{Email: "a@example.com", Password: "x"})

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, TimeoutErrorMessage, apiErr.Message)
	assert.Equal(t, http.StatusRequestTimeout, apiErr.StatusCode)
}

func TestClient_ContextDeadlineIsTimeout(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.Delay("/users/me", 500*time.Millisecond)

	c, _ := newTestClient(t, srv.APIURL())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.CurrentUser(ctx)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, StatusTimeout, apiErr.StatusCode)
}

func TestClient_CancelledContextIsUnexpected(t *testing.T) {
	c, _ := newTestClient(t, "http://127.0.0.1:1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Get(ctx, "/x", nil, nil)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, DefaultErrorMessage, apiErr.Message)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestClient_UndecodableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	var out map[string]any
	err := c.Get(context.Background(), "/x", nil, &out)

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, DefaultErrorMessage, apiErr.Message)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

func TestClient_UnauthorizedClearsTokenAndNotifies(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()

	c, tokens := newTestClient(t, srv.APIURL())
	require.NoError(t, tokens.SaveToken("stale"))

	var notified int32
	remove := c.AddUnauthorizedListener(UnauthorizedFunc(func() {
		atomic.AddInt32(&notified, 1)
	}))

	_, err := c.CurrentUser(context.Background())

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsUnauthorized())
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))

	token, err := tokens.GetToken()
	require.NoError(t, err)
	assert.Empty(t, token)

	remove()
	_, _ = c.CurrentUser(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(&notified))
}

func TestClient_NonUnauthorizedKeepsToken(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.Fail("/users/me", http.StatusForbidden, `{"message":"Forbidden"}`)

	c, tokens := newTestClient(t, srv.APIURL())
	require.NoError(t, tokens.SaveToken("keep-me"))

	_, err := c.CurrentUser(context.Background())
	require.Error(t, err)

	token, _ := tokens.GetToken()
	assert.Equal(t, "keep-me", token)
}

func TestGlobalErrorHandler(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.Fail("/subscriptions/status", http.StatusInternalServerError, `{"message":"boom"}`)

	c, _ := newTestClient(t, srv.APIURL())

	var got []*APIError
	remove := SetGlobalErrorHandler(func(e *APIError) { got = append(got, e) })
	defer remove()

	err := c.Post(context.Background(), "/subscriptions/status", struct{}{}, nil)
	require.Error(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "boom", got[0].Message)
	assert.Equal(t, http.StatusInternalServerError, got[0].StatusCode)

	// the handler gets a copy
	got[0].Message = "changed"
	apiErr, _ := AsAPIError(err)
	assert.Equal(t, "boom", apiErr.Message)
}

func TestGlobalErrorHandler_PanicIsContained(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.Fail("/x", http.StatusBadRequest, `{"message":"bad"}`)

	c, _ := newTestClient(t, srv.APIURL())
	remove := SetGlobalErrorHandler(func(*APIError) { panic("handler bug") })
	defer remove()

	var err error
	require.NotPanics(t, func() {
		err = c.Get(context.Background(), "/x", nil, nil)
	})

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "bad", apiErr.Message)
}

func TestGlobalErrorHandler_SingleSlot(t *testing.T) {
	var first, second int
	removeFirst := SetGlobalErrorHandler(func(*APIError) { first++ })
	removeSecond := SetGlobalErrorHandler(func(*APIError) { second++ })
	defer RemoveGlobalErrorHandler()

	// stale teardown must not remove the newer handler
	removeFirst()
	invokeErrorHandler(&APIError{Message: "x"}, logging.Discard())
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)

	removeSecond()
	invokeErrorHandler(&APIError{Message: "x"}, logging.Discard())
	assert.Equal(t, 1, second)

	SetGlobalErrorHandler(func(*APIError) { first++ })
	RemoveGlobalErrorHandler()
	invokeErrorHandler(&APIError{Message: "x"}, logging.Discard())
	assert.Equal(t, 0, first)
}

func TestAuthEndpoints(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.AddUser("ada@example.com", "password1", "Ada", "Lovelace")

	c, tokens := newTestClient(t, srv.APIURL())
	ctx := context.Background()

	auth, err := c.Login(ctx, models.LoginCredentials{Email: "ada@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "Ada", auth.User.FirstName)

	_, err = c.Login(ctx, models.LoginCredentials{Email: "ada@example.com", Password: "wrong"})
	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "Invalid credentials", apiErr.Message)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	reg, err := c.Register(ctx, models.SignUpCredentials{Email: "bob@example.com", Password: "password2", FirstName: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", reg.User.Email)

	_, err = c.Register(ctx, models.SignUpCredentials{Email: "bob@example.com", Password: "password2"})
	apiErr, ok = AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	require.NoError(t, tokens.SaveToken(reg.Token))
	require.NoError(t, c.Logout(ctx))
	logout := srv.RequestsTo("/auth/logout")
	require.Len(t, logout, 1)
	assert.Equal(t, "Bearer "+reg.Token, logout[0].Authorization)
}

func TestAuthResponseTokenNames(t *testing.T) {
	tests := []struct {
		body  string
		token string
		ok    bool
	}{
		{`{"user":{"id":"u1","email":"a@example.com"},"token":"t1"}`, "t1", true},
		{`{"user":{"id":"u1"},"accessToken":"t2"}`, "t2", true},
		{`{"access_token":"t3"}`, "t3", true},
		{`{"data":{"token":"t4"}}`, "t4", true},
		{`{"user":{"id":"u1"}}`, "", false},
		{`{"user":{"id":"u1"},"token":""}`, "", false},
	}

	for _, tt := range tests {
		auth, ok := parseAuthResponse([]byte(tt.body))
		assert.Equal(t, tt.ok, ok, tt.body)
		if ok {
			assert.Equal(t, tt.token, auth.Token)
		}
	}
}

func TestLogin_MissingTokenIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"a@example.com"}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	_, err := c.Login(context.Background(), models.LoginCredentials{Email: "a@example.com", Password: "x"})

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "no authentication token")
}

func TestCurrentUser_Wrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"a@example.com","firstName":"Ada"}}`))
	}))
	defer srv.Close()

	c, _ := newTestClient(t, srv.URL)
	user, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "Ada", user.FirstName)
}

func TestErrorFromTransport(t *testing.T) {
	assert.Equal(t, StatusTimeout, errorFromTransport(context.DeadlineExceeded, false).StatusCode)
	assert.Equal(t, http.StatusInternalServerError, errorFromTransport(context.Canceled, false).StatusCode)
	assert.Equal(t, StatusNetworkError, errorFromTransport(errors.New("dial tcp: refused"), false).StatusCode)
	assert.Equal(t, http.StatusInternalServerError, errorFromTransport(errors.New("unexpected EOF"), true).StatusCode)
}
