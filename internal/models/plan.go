package models

import "fmt"

// PlanFeature is one line of a plan's feature list
type PlanFeature struct {
	Name     string `json:"name"`
	Included bool   `json:"included"`
}

// Plan is an entry of the static pricing catalogue.
// Price is in whole currency units.
type Plan struct {
	ID          string        `json:"id"`
	Name        PlanName      `json:"name"`
	DisplayName string        `json:"displayName"`
	Description string        `json:"description"`
	Price       int           `json:"price"`
	Currency    string        `json:"currency"`
	Interval    string        `json:"interval"`
	Features    []PlanFeature `json:"features"`
	IsPopular   bool          `json:"isPopular"`
}

// Plans is the pricing catalogue, cheapest first
var Plans = []Plan{
	{
		ID:          "plan_free",
		Name:        PlanFree,
		DisplayName: "Free",
		Description: "Perfect for getting started",
		Price:       0,
		Currency:    "USD",
		Interval:    "month",
		Features: []PlanFeature{
			{Name: "Basic security monitoring", Included: true},
			{Name: "Up to 3 users", Included: true},
			{Name: "Email support", Included: true},
			{Name: "API access", Included: false},
			{Name: "Advanced analytics", Included: false},
			{Name: "Custom integrations", Included: false},
		},
	},
	{
		ID:          "plan_pro",
		Name:        PlanPro,
		DisplayName: "Pro",
		Description: "Best for growing teams",
		Price:       29,
		Currency:    "USD",
		Interval:    "month",
		Features: []PlanFeature{
			{Name: "Advanced security monitoring", Included: true},
			{Name: "Up to 25 users", Included: true},
			{Name: "Priority email support", Included: true},
			{Name: "API access", Included: true},
			{Name: "Advanced analytics", Included: true},
			{Name: "Custom integrations", Included: false},
		},
		IsPopular: true,
	},
	{
		ID:          "plan_premium",
		Name:        PlanPremium,
		DisplayName: "Premium",
		Description: "For large organizations",
		Price:       99,
		Currency:    "USD",
		Interval:    "month",
		Features: []PlanFeature{
			{Name: "Enterprise security monitoring", Included: true},
			{Name: "Unlimited users", Included: true},
			{Name: "24/7 phone & email support", Included: true},
			{Name: "Full API access", Included: true},
			{Name: "Advanced analytics & reports", Included: true},
			{Name: "Custom integrations", Included: true},
		},
	},
}

// PlanByID looks up a plan by its catalogue id (e.g. "plan_pro")
func PlanByID(id string) (Plan, error) {
	for _, p := range Plans {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, id)
}

// PlanByName looks up a plan by tier name
func PlanByName(name PlanName) (Plan, error) {
	for _, p := range Plans {
		if p.Name == name {
			return p, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, name)
}

// FindPlan accepts either a plan id or a tier name
func FindPlan(ref string) (Plan, error) {
	if p, err := PlanByID(ref); err == nil {
		return p, nil
	}
	return PlanByName(PlanName(ref))
}
