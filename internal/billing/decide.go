package billing

import (
	"spactl/internal/models"
	"spactl/internal/store"
)

// Action is what subscribing to a plan should do given the current state
type Action int

const (
	// ActionCheckout creates a checkout session and redirects to it
	ActionCheckout Action = iota
	// ActionAlreadyOn means the target plan is the current plan
	ActionAlreadyOn
	// ActionCancelToDowngrade means the target is free while on a paid plan.
	// Going back to free is done by cancelling, never by creating a free record.
	ActionCancelToDowngrade
)

// Decide picks the action for subscribing to target
func Decide(st store.State, target models.Plan) Action {
	current := store.PlanName(st)

	switch {
	case target.Name == models.PlanFree && current == models.PlanFree:
		return ActionAlreadyOn
	case target.Name == models.PlanFree:
		return ActionCancelToDowngrade
	case target.Name == current && store.IsSubscriptionActive(st):
		return ActionAlreadyOn
	default:
		return ActionCheckout
	}
}
