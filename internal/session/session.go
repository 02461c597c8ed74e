// Package session owns the session token lifecycle: restoring a stored
// session at startup, logging in and out, and reacting when the backend
// rejects the token.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"spactl/internal/api"
	"spactl/internal/logging"
	"spactl/internal/models"
)

// Status is the controller's position in the session lifecycle
type Status int

const (
	Uninitialized Status = iota
	Restoring
	Authenticated
	Unauthenticated
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Restoring:
		return "restoring"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// State is an immutable view of the session
type State struct {
	Status          Status
	User            *models.User
	IsAuthenticated bool
	IsLoading       bool
	Token           string
}

// Backend is the part of the API client the controller needs
type Backend interface {
	Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthResponse, error)
	Register(ctx context.Context, creds models.SignUpCredentials) (*models.AuthResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
}

var _ api.UnauthorizedListener = (*Controller)(nil)

// Controller is safe for concurrent use. No lock is held while talking to
// the backend or calling observers.
type Controller struct {
	backend Backend
	tokens  *models.TokenStore
	log     *logrus.Logger

	mu      sync.Mutex
	state   State
	started bool
	// bumped whenever the session is ended or replaced, so results of
	// requests started before that are dropped
	epoch uint64

	obsMu     sync.Mutex
	observers map[uint64]func(State)
	nextObs   uint64
}

// New creates a controller in the Uninitialized state. Call Start to restore
// a stored session.
func New(backend Backend, tokens *models.TokenStore, log *logrus.Logger) *Controller {
	if tokens == nil {
		tokens = models.NewTokenStore(nil)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Controller{
		backend:   backend,
		tokens:    tokens,
		log:       log,
		state:     State{Status: Uninitialized, IsLoading: true},
		observers: make(map[uint64]func(State)),
	}
}

func signedOut() State {
	return State{Status: Unauthenticated}
}

// State returns the current session state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Token returns the in-memory token, falling back to durable storage
func (c *Controller) Token() string {
	c.mu.Lock()
	token := c.state.Token
	c.mu.Unlock()

	if token != "" {
		return token
	}
	stored, err := c.tokens.GetToken()
	if err != nil {
		c.log.WithFields(logging.Err(err)).Debug("failed to read stored token")
		return ""
	}
	return stored
}

// Subscribe registers fn to receive the state after every change
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.obsMu.Lock()
	c.nextObs++
	id := c.nextObs
	c.observers[id] = fn
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		defer c.obsMu.Unlock()
		delete(c.observers, id)
	}
}

func (c *Controller) notify() {
	c.obsMu.Lock()
	fns := make([]func(State), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()

	if len(fns) == 0 {
		return
	}
	st := c.State()
	for _, fn := range fns {
		fn(st)
	}
}

// set replaces the state. bump marks the session as ended or replaced.
func (c *Controller) set(st State, bump bool) {
	c.mu.Lock()
	c.state = st
	if bump {
		c.epoch++
	}
	c.mu.Unlock()
	c.notify()
}

// setIf replaces the state only if nothing ended or replaced the session since epoch
func (c *Controller) setIf(epoch uint64, st State) bool {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return false
	}
	c.state = st
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Controller) setLoading(loading bool) uint64 {
	c.mu.Lock()
	c.state.IsLoading = loading
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()
	return epoch
}

func (c *Controller) clearToken() {
	if err := c.tokens.ClearToken(); err != nil {
		c.log.WithFields(logging.Err(err)).Warn("failed to clear stored token")
	}
}

// Start restores a stored session. Only the first call does any work;
// later calls return the current state.
func (c *Controller) Start(ctx context.Context) State {
	c.mu.Lock()
	if c.started {
		st := c.state.clone()
		c.mu.Unlock()
		return st
	}
	c.started = true
	c.state = State{Status: Restoring, IsLoading: true}
	epoch := c.epoch
	c.mu.Unlock()
	c.notify()

	token, err := c.tokens.GetToken()
	if err != nil {
		c.log.WithFields(logging.Err(err)).Warn("failed to read stored token")
	}
	if token == "" {
		c.setIf(epoch, signedOut())
		return c.State()
	}

	user, err := c.backend.CurrentUser(ctx)
	if err != nil {
		if apiErr, ok := api.AsAPIError(err); ok && apiErr.IsUnauthorized() {
			c.clearToken()
		} else {
			c.log.WithFields(logging.Err(err)).Warn("failed to restore session")
		}
		c.setIf(epoch, signedOut())
		// whatever happened meanwhile, restoring never stays loading
		c.finishRestoring()
		return c.State()
	}

	if !c.setIf(epoch, State{Status: Authenticated, User: user, IsAuthenticated: true, Token: token}) {
		c.finishRestoring()
	}
	return c.State()
}

func (c *Controller) finishRestoring() {
	c.mu.Lock()
	changed := c.state.Status == Restoring
	if changed {
		c.state = signedOut()
	}
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// Login authenticates with the backend and persists the token.
// A failure leaves the session signed out and returns the backend error unchanged.
func (c *Controller) Login(ctx context.Context, creds models.LoginCredentials) error {
	c.setLoading(true)

	auth, err := c.backend.Login(ctx, creds)
	return c.finishAuth(auth, err)
}

// SignUp registers a new account and signs it in
func (c *Controller) SignUp(ctx context.Context, creds models.SignUpCredentials) error {
	c.setLoading(true)

	auth, err := c.backend.Register(ctx, creds)
	return c.finishAuth(auth, err)
}

func (c *Controller) finishAuth(auth *models.AuthResponse, err error) error {
	if err != nil {
		c.failAuth()
		return err
	}

	if err := c.tokens.SaveToken(auth.Token); err != nil {
		c.failAuth()
		return fmt.Errorf("failed to save auth token: %w", err)
	}

	user := auth.User
	c.set(State{Status: Authenticated, User: &user, IsAuthenticated: true, Token: auth.Token}, true)
	return nil
}

// failAuth ends a failed sign-in. A session that was never resolved is signed out.
func (c *Controller) failAuth() {
	c.mu.Lock()
	if c.state.Status == Uninitialized {
		c.state = signedOut()
	} else {
		c.state.IsLoading = false
	}
	c.mu.Unlock()
	c.notify()
}

// Logout tells the backend (best effort) and always ends the local session.
// Only a failure to clear the stored token is returned.
func (c *Controller) Logout(ctx context.Context) error {
	if c.Token() != "" {
		if err := c.backend.Logout(ctx); err != nil {
			c.log.WithFields(logging.Err(err)).Warn("logout request failed")
		}
	}

	err := c.tokens.ClearToken()
	c.set(signedOut(), true)
	if err != nil {
		return fmt.Errorf("failed to clear auth token: %w", err)
	}
	return nil
}

// RefreshUser re-validates the token and reloads the profile. Any failure
// clears the token and signs out.
func (c *Controller) RefreshUser(ctx context.Context) State {
	token := c.Token()
	if token == "" {
		c.set(signedOut(), true)
		return c.State()
	}

	epoch := c.setLoading(true)

	user, err := c.backend.CurrentUser(ctx)
	if err != nil {
		c.log.WithFields(logging.Err(err)).Debug("refreshing user failed")
		c.clearToken()
		c.set(signedOut(), true)
		return c.State()
	}

	if !c.setIf(epoch, State{Status: Authenticated, User: user, IsAuthenticated: true, Token: token}) {
		// the session ended while the request was in flight
		c.mu.Lock()
		c.state.IsLoading = false
		c.mu.Unlock()
		c.notify()
	}
	return c.State()
}

// SessionInvalidated signs out after the backend rejected the token.
// The API client has already removed it from storage.
func (c *Controller) SessionInvalidated() {
	c.log.Debug("session invalidated by backend")
	c.set(signedOut(), true)
}

func (st State) clone() State {
	c := st
	if st.User != nil {
		u := *st.User
		c.User = &u
	}
	return c
}
