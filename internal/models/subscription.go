package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// PlanName identifies one of the three subscription tiers
type PlanName string

const (
	PlanFree    PlanName = "free"
	PlanPro     PlanName = "pro"
	PlanPremium PlanName = "premium"
)

// Valid reports whether p is one of the known plan names
func (p PlanName) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanPremium:
		return true
	}
	return false
}

// UnmarshalJSON rejects plan names outside the closed set
func (p *PlanName) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !PlanName(s).Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, s)
	}
	*p = PlanName(s)
	return nil
}

// Subscription represents the user's current subscription
type Subscription struct {
	ID                 string     `json:"id"`
	PlanName           PlanName   `json:"planName"`
	IsActive           bool       `json:"isActive"`
	CurrentPeriodStart *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd  *bool      `json:"cancelAtPeriodEnd,omitempty"`
}

// DefaultSubscription is what a missing subscription resolves to
var DefaultSubscription = Subscription{
	PlanName: PlanFree,
	IsActive: false,
}

// SubscriptionPatch holds a partial update for a Subscription
type SubscriptionPatch struct {
	PlanName           *PlanName
	IsActive           *bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  *bool
}

// Apply returns a copy of s with the patch merged in
func (p SubscriptionPatch) Apply(s Subscription) Subscription {
	if p.PlanName != nil {
		s.PlanName = *p.PlanName
	}
	if p.IsActive != nil {
		s.IsActive = *p.IsActive
	}
	if p.CurrentPeriodStart != nil {
		t := *p.CurrentPeriodStart
		s.CurrentPeriodStart = &t
	}
	if p.CurrentPeriodEnd != nil {
		t := *p.CurrentPeriodEnd
		s.CurrentPeriodEnd = &t
	}
	if p.CancelAtPeriodEnd != nil {
		b := *p.CancelAtPeriodEnd
		s.CancelAtPeriodEnd = &b
	}
	return s
}

// CheckoutSessionRequest is the body sent to create a checkout session
type CheckoutSessionRequest struct {
	PlanID     string `json:"planId"`
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// CheckoutSession is a provider-hosted payment flow to redirect the user to
type CheckoutSession struct {
	CheckoutURL string `json:"checkoutUrl"`
	SessionID   string `json:"sessionId"`
}

// SubscriptionStatus is the backend's view of the current subscription
type SubscriptionStatus struct {
	PlanName         PlanName   `json:"planName"`
	IsActive         bool       `json:"isActive"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd"`
}

// CancelResult is returned when a subscription is cancelled
type CancelResult struct {
	Message     string    `json:"message"`
	CancelledAt time.Time `json:"cancelledAt"`
}
