// Package fakebackend is an in-process stand-in for the SaaS backend used by
// spactl's tests. It serves the auth, profile and subscription endpoints under
// /api/v1 and records every request it receives.
package fakebackend

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"spactl/internal/models"
)

const (
	apiPrefix   = "/api/v1"
	tokenSecret = "fakebackend-secret"
	tokenTTL    = 24 * time.Hour
)

// Request is one recorded inbound request
type Request struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	ContentType   string
	Body          string
}

type account struct {
	user     models.User
	password string
}

type checkout struct {
	email string
	plan  models.PlanName
}

// Server is a fake backend bound to a local httptest listener
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	accounts  map[string]*account // by email
	tokens    map[string]string   // token -> email
	subs      map[string]models.Subscription
	checkouts map[string]checkout
	requests  []Request
	faults    map[string]fault
}

type fault struct {
	status int
	body   string
	delay  time.Duration
}

// New starts a fake backend. Call Close when done.
func New() *Server {
	s := &Server{
		accounts:  make(map[string]*account),
		tokens:    make(map[string]string),
		subs:      make(map[string]models.Subscription),
		checkouts: make(map[string]checkout),
		faults:    make(map[string]fault),
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// APIURL is the base URL a client should be configured with
func (s *Server) APIURL() string {
	return s.URL + apiPrefix
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.record)
	r.Use(s.inject)

	r.Route(apiPrefix, func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticated)
			r.Post("/auth/logout", s.logout)
			r.Get("/users/me", s.me)
			r.Post("/subscriptions/checkout-session", s.createCheckout)
			r.Post("/subscriptions/status", s.status)
			r.Post("/subscriptions/cancel", s.cancel)
		})
	})

	return r
}

// AddUser registers an account directly and returns its profile
func (s *Server) AddUser(email, password, firstName, lastName string) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(email, password, firstName, lastName)
}

func (s *Server) addUserLocked(email, password, firstName, lastName string) models.User {
	now := time.Now().UTC().Truncate(time.Second)
	u := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: &now,
		UpdatedAt: &now,
	}
	s.accounts[strings.ToLower(email)] = &account{user: u, password: password}
	return u
}

// IssueToken returns a valid token for an existing account
func (s *Server) IssueToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		panic(fmt.Sprintf("fakebackend: no account %q", email))
	}
	return s.issueLocked(acc)
}

func (s *Server) issueLocked(acc *account) string {
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   acc.user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}).SignedString([]byte(tokenSecret))
	if err != nil {
		panic(err)
	}
	s.tokens[token] = strings.ToLower(acc.user.Email)
	return token
}

// RevokeToken makes token fail with 401 from now on
func (s *Server) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// SetSubscription installs a subscription for the account
func (s *Server) SetSubscription(email string, sub models.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[strings.ToLower(email)] = sub
}

// Subscription returns the account's subscription, if any
func (s *Server) Subscription(email string) (models.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[strings.ToLower(email)]
	return sub, ok
}

// CompleteCheckout simulates the payment provider confirming a checkout session
func (s *Server) CompleteCheckout(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	co, ok := s.checkouts[sessionID]
	if !ok {
		return fmt.Errorf("fakebackend: unknown checkout session %q", sessionID)
	}
	delete(s.checkouts, sessionID)

	now := time.Now().UTC().Truncate(time.Second)
	end := now.AddDate(0, 1, 0)
	s.subs[co.email] = models.Subscription{
		ID:                 "sub_" + uuid.NewString()[:8],
		PlanName:           co.plan,
		IsActive:           true,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &end,
	}
	return nil
}

// Fail makes every request to path (relative to /api/v1) answer with status
// and the raw body. A zero status only applies the delay.
func (s *Server) Fail(path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.faults[path]
	f.status, f.body = status, body
	s.faults[path] = f
}

// Delay holds every response to path for d
func (s *Server) Delay(path string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.faults[path]
	f.delay = d
	s.faults[path] = f
}

// Requests returns a copy of every recorded request
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the recorded requests for one path
func (s *Server) RequestsTo(path string) []Request {
	var out []Request
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}
