package fakebackend

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"spactl/internal/models"
)

type ctxKey struct{}

type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, msg string, fieldErrs map[string][]string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Message: msg, Errors: fieldErrs})
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          strings.TrimPrefix(r.URL.Path, apiPrefix),
			Authorization: r.Header.Get("Authorization"),
			RequestID:     middleware.GetReqID(r.Context()),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          string(body),
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		f, ok := s.faults[strings.TrimPrefix(r.URL.Path, apiPrefix)]
		s.mu.Unlock()

		if ok && f.delay > 0 {
			select {
			case <-time.After(f.delay):
			case <-r.Context().Done():
				return
			}
		}
		if ok && f.status != 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		email, ok := s.tokens[token]
		s.mu.Unlock()

		if !found || !ok {
			respondError(w, r, http.StatusUnauthorized, "Unauthorized", nil)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, email)))
	})
}

func emailFrom(r *http.Request) string {
	email, _ := r.Context().Value(ctxKey{}).(string)
	return email
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpCredentials
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	fieldErrs := map[string][]string{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fieldErrs["email"] = append(fieldErrs["email"], "email must be an email")
	}
	if len(req.Password) < 8 {
		fieldErrs["password"] = append(fieldErrs["password"], "password must be longer than or equal to 8 characters")
	}
	if len(fieldErrs) > 0 {
		respondError(w, r, http.StatusBadRequest, "Validation failed", fieldErrs)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[strings.ToLower(req.Email)]; exists {
		respondError(w, r, http.StatusConflict, "User with this email already exists", nil)
		return
	}
	u := s.addUserLocked(req.Email, req.Password, req.FirstName, req.LastName)
	token := s.issueLocked(s.accounts[strings.ToLower(req.Email)])

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, models.AuthResponse{User: u, Token: token})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginCredentials
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[strings.ToLower(req.Email)]
	if !ok || acc.password != req.Password {
		respondError(w, r, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	render.JSON(w, r, models.AuthResponse{User: acc.user, Token: s.issueLocked(acc)})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.RevokeToken(token)
	render.JSON(w, r, map[string]string{"message": "Logged out successfully"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acc := s.accounts[emailFrom(r)]
	s.mu.Unlock()

	if acc == nil {
		respondError(w, r, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	render.JSON(w, r, acc.user)
}

func (s *Server) createCheckout(w http.ResponseWriter, r *http.Request) {
	var req models.CheckoutSessionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body", nil)
		return
	}

	plan, err := models.PlanByID(req.PlanID)
	if err != nil || plan.Price == 0 {
		respondError(w, r, http.StatusBadRequest, "Invalid plan", map[string][]string{
			"planId": {"planId must be a paid plan"},
		})
		return
	}

	sessionID := "cs_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")

	s.mu.Lock()
	s.checkouts[sessionID] = checkout{email: emailFrom(r), plan: plan.Name}
	s.mu.Unlock()

	render.JSON(w, r, models.CheckoutSession{
		CheckoutURL: s.URL + "/pay/" + sessionID,
		SessionID:   sessionID,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	sub, ok := s.Subscription(emailFrom(r))
	if !ok {
		render.JSON(w, r, models.SubscriptionStatus{PlanName: models.PlanFree})
		return
	}
	render.JSON(w, r, models.SubscriptionStatus{
		PlanName:         sub.PlanName,
		IsActive:         sub.IsActive,
		CurrentPeriodEnd: sub.CurrentPeriodEnd,
	})
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	email := emailFrom(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[email]
	if !ok || !sub.IsActive || sub.PlanName == models.PlanFree {
		respondError(w, r, http.StatusBadRequest, "No active subscription to cancel", nil)
		return
	}
	cancel := true
	sub.CancelAtPeriodEnd = &cancel
	s.subs[email] = sub

	render.JSON(w, r, models.CancelResult{
		Message:     "Subscription will be cancelled at the end of the billing period",
		CancelledAt: time.Now().UTC().Truncate(time.Second),
	})
}
