// Package app assembles spactl's services from a loaded configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"spactl/internal/api"
	"spactl/internal/billing"
	"spactl/internal/config"
	"spactl/internal/logging"
	"spactl/internal/models"
	"spactl/internal/session"
	"spactl/internal/storage"
	"spactl/internal/store"
)

// Options overrides parts of the assembly, mostly for tests
type Options struct {
	// LogOutput defaults to stderr
	LogOutput io.Writer

	// Storage replaces the driver selected by the config
	Storage storage.Storage

	Transport http.RoundTripper
}

// App holds one wired set of services
type App struct {
	Config  *config.Config
	Log     *logrus.Logger
	Storage storage.Storage
	Tokens  *models.TokenStore
	API     *api.Client
	Store   *store.Store
	Session *session.Controller
	Billing *billing.Service

	warned    atomic.Bool
	expired   atomic.Bool
	teardown  []func()
	closeOnce sync.Once
	closeErr  error
}

// New wires the services described by cfg. The returned App owns the
// process-wide API error handler until Close.
func New(cfg *config.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}

	log := logging.New(cfg.LogLevel, opts.LogOutput)

	s := opts.Storage
	if s == nil {
		var err error
		s, err = storage.Open(cfg.StorageOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
		}
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		Storage: s,
		Tokens:  models.NewTokenStore(s),
	}

	a.API = api.New(api.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.Timeout,
		Tokens:    a.Tokens,
		Transport: opts.Transport,
		Logger:    log,
	})
	a.Store = store.New(s, log)
	a.Session = session.New(a.API, a.Tokens, log)
	a.Billing = billing.New(a.API, cfg.AppURL)

	a.teardown = append(a.teardown,
		a.API.AddUnauthorizedListener(a),
		api.SetGlobalErrorHandler(a.handleAPIError),
		a.Session.Subscribe(a.mirrorSession),
	)

	return a, nil
}

func (a *App) handleAPIError(apiErr *api.APIError) {
	a.Log.WithFields(logrus.Fields{
		"status": apiErr.StatusCode,
	}).Debugf("api error: %s", apiErr.Message)

	// a rejected sign-in is not an expired session
	if apiErr.IsUnauthorized() && a.expired.Swap(false) && a.warned.CompareAndSwap(false, true) {
		a.Log.Warn("session is no longer valid, please sign in again")
	}
}

// SessionInvalidated signs the session out after a 401 and notes whether
// there was a signed-in session to lose.
func (a *App) SessionInvalidated() {
	a.expired.Store(a.Session.State().IsAuthenticated)
	a.Session.SessionInvalidated()
}

// mirrorSession keeps the store's user in step with the session
func (a *App) mirrorSession(st session.State) {
	switch st.Status {
	case session.Restoring:
		a.Store.SetUserLoading(true)
	case session.Authenticated:
		a.Store.SetUser(st.User)
		a.Store.SetUserLoading(st.IsLoading)
	case session.Unauthenticated:
		if !st.IsLoading {
			a.Store.Reset()
		}
	}
}

// Start restores a stored session
func (a *App) Start(ctx context.Context) session.State {
	return a.Session.Start(ctx)
}

// Close detaches the handler and listeners and closes storage. It is safe
// to call more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		for i := len(a.teardown) - 1; i >= 0; i-- {
			a.teardown[i]()
		}
		a.teardown = nil
		a.closeErr = a.Storage.Close()
	})
	return a.closeErr
}
