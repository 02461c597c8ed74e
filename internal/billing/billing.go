// Package billing talks to the backend's subscription endpoints. Payment
// provider details stay on the backend; the client only creates checkout
// sessions, reads status and cancels.
package billing

import (
	"context"
	"strings"
	"time"

	"spactl/internal/models"
)

const (
	DefaultAppURL = "http://localhost:3000"

	// DefaultConfirmDelay gives the backend time to process the provider's webhook
	DefaultConfirmDelay = 1500 * time.Millisecond

	// Used as the subscription id when checkout returns without a session id
	fallbackSubscriptionID = "sub_new"
)

// Poster is the part of the API client the service needs
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// CheckoutOptions overrides where the provider sends the user afterwards.
// Empty fields use the app's /checkout/success and /checkout/cancel pages.
type CheckoutOptions struct {
	SuccessURL string
	CancelURL  string
}

// Service is stateless apart from its configuration
type Service struct {
	api    Poster
	appURL string
	now    func() time.Time
}

func New(api Poster, appURL string) *Service {
	if appURL == "" {
		appURL = DefaultAppURL
	}
	return &Service{
		api:    api,
		appURL: strings.TrimRight(appURL, "/"),
		now:    time.Now,
	}
}

// AppURL is the origin checkout return URLs are built from
func (s *Service) AppURL() string {
	return s.appURL
}

// CreateCheckoutSession starts a provider-hosted checkout for planID
func (s *Service) CreateCheckoutSession(ctx context.Context, planID string, opts CheckoutOptions) (*models.CheckoutSession, error) {
	req := models.CheckoutSessionRequest{
		PlanID:     planID,
		SuccessURL: opts.SuccessURL,
		CancelURL:  opts.CancelURL,
	}
	if req.SuccessURL == "" {
		req.SuccessURL = s.appURL + "/checkout/success"
	}
	if req.CancelURL == "" {
		req.CancelURL = s.appURL + "/checkout/cancel"
	}

	var session models.CheckoutSession
	if err := s.api.Post(ctx, "/subscriptions/checkout-session", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSubscriptionStatus asks the backend for the current subscription
func (s *Service) GetSubscriptionStatus(ctx context.Context) (*models.SubscriptionStatus, error) {
	var status models.SubscriptionStatus
	if err := s.api.Post(ctx, "/subscriptions/status", struct{}{}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CancelSubscription cancels the current subscription
func (s *Service) CancelSubscription(ctx context.Context) (*models.CancelResult, error) {
	var result models.CancelResult
	if err := s.api.Post(ctx, "/subscriptions/cancel", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RedirectToCheckout hands the checkout URL to nav. A nil navigator
// (headless runs) does nothing.
func RedirectToCheckout(nav Navigator, checkoutURL string) error {
	if nav == nil {
		return nil
	}
	return nav.Navigate(checkoutURL)
}
