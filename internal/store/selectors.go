package store

import "spactl/internal/models"

// PlanName returns the subscription's plan, or free when there is none
func PlanName(st State) models.PlanName {
	if st.Subscription == nil {
		return models.PlanFree
	}
	return st.Subscription.PlanName
}

// IsSubscriptionActive is false when there is no subscription
func IsSubscriptionActive(st State) bool {
	return st.Subscription != nil && st.Subscription.IsActive
}

// IsProOrHigher looks at the plan only, not whether it is active
func IsProOrHigher(st State) bool {
	switch PlanName(st) {
	case models.PlanPro, models.PlanPremium:
		return true
	}
	return false
}

func IsPremium(st State) bool {
	return PlanName(st) == models.PlanPremium
}
