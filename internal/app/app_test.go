package app

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spactl/internal/api"
	"spactl/internal/config"
	"spactl/internal/models"
	"spactl/internal/session"
	"spactl/internal/storage"
	"spactl/internal/testutil/fakebackend"
)

func newTestApp(t *testing.T, srv *fakebackend.Server, logs *bytes.Buffer) *App {
	t.Helper()

	cfg := config.Default(t.TempDir())
	cfg.APIURL = srv.APIURL()
	cfg.Timeout = 2 * time.Second
	cfg.Storage.Driver = storage.DriverMemory

	var out io.Writer = io.Discard
	if logs != nil {
		out = logs
	}
	a, err := New(cfg, Options{LogOutput: out})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestNew_UnknownStorageDriver(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.Storage.Driver = "tape"

	_, err := New(cfg, Options{})
	assert.ErrorIs(t, err, storage.ErrUnknownDriver)
}

func TestNew_FileStorage(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()

	cfg := config.Default(t.TempDir())
	cfg.APIURL = srv.APIURL()

	a, err := New(cfg, Options{})
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Storage.(*storage.FileStorage)
	assert.True(t, ok)
}

func TestLogin_MirrorsUserIntoStore(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.AddUser("test@example.com", "password123", "Test", "User")

	a := newTestApp(t, srv, nil)
	a.Start(context.Background())

	err := a.Session.Login(context.Background(), models.LoginCredentials{
		Email:    "test@example.com",
		Password: "password123",
	})
	require.NoError(t, err)

	snap := a.Store.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, "test@example.com", snap.User.Email)
	assert.False(t, snap.IsUserLoading)
}

func TestLogout_ResetsStore(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.AddUser("test@example.com", "password123", "Test", "User")

	a := newTestApp(t, srv, nil)
	a.Start(context.Background())
	require.NoError(t, a.Session.Login(context.Background(), models.LoginCredentials{
		Email:    "test@example.com",
		Password: "password123",
	}))
	a.Store.SetSubscription(&models.Subscription{ID: "sub_1", PlanName: models.PlanPro, IsActive: true})

	require.NoError(t, a.Session.Logout(context.Background()))

	snap := a.Store.Snapshot()
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.Subscription)
}

func TestUnauthorized_SignsOutAndWarnsOnce(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.AddUser("test@example.com", "password123", "Test", "User")

	var logs bytes.Buffer
	a := newTestApp(t, srv, &logs)

	token := srv.IssueToken("test@example.com")
	require.NoError(t, a.Tokens.SaveToken(token))
	st := a.Start(context.Background())
	require.Equal(t, session.Authenticated, st.Status)

	srv.RevokeToken(token)
	_, err := a.Billing.GetSubscriptionStatus(context.Background())
	require.Error(t, err)
	_, err = a.Billing.GetSubscriptionStatus(context.Background())
	require.Error(t, err)

	assert.Equal(t, session.Unauthenticated, a.Session.State().Status)
	assert.Nil(t, a.Store.Snapshot().User)

	stored, err := a.Tokens.GetToken()
	require.NoError(t, err)
	assert.Empty(t, stored)

	assert.Equal(t, 1, strings.Count(logs.String(), "please sign in again"))
}

func TestUnauthorized_RejectedLoginDoesNotWarn(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.AddUser("test@example.com", "password123", "Test", "User")

	var logs bytes.Buffer
	a := newTestApp(t, srv, &logs)
	a.Start(context.Background())

	err := a.Session.Login(context.Background(), models.LoginCredentials{Email: "test@example.com", Password: "wrong-password"})
	apiErr, ok := api.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsUnauthorized())

	assert.NotContains(t, logs.String(), "please sign in again")
	assert.Equal(t, session.Unauthenticated, a.Session.State().Status)
}

func TestClose(t *testing.T) {
	srv := fakebackend.New()
	defer srv.Close()
	srv.AddUser("test@example.com", "password123", "Test", "User")

	a := newTestApp(t, srv, nil)
	token := srv.IssueToken("test@example.com")
	require.NoError(t, a.Tokens.SaveToken(token))
	require.Equal(t, session.Authenticated, a.Start(context.Background()).Status)

	require.NoError(t, a.Close())
	assert.NoError(t, a.Close())

	// the session no longer hears about rejected tokens
	srv.RevokeToken(token)
	_, err := a.API.CurrentUser(context.Background())
	require.Error(t, err)
	assert.Equal(t, session.Authenticated, a.Session.State().Status)
}
