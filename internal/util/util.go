package util

import (
	"fmt"
	"time"

	"spactl/internal/models"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// FormatPrice formats a whole-unit amount, e.g. "$29"
func FormatPrice(amount int, currency string) string {
	if sym, ok := currencySymbols[currency]; ok {
		return fmt.Sprintf("%s%d", sym, amount)
	}
	if currency == "" {
		return fmt.Sprintf("%d", amount)
	}
	return fmt.Sprintf("%d %s", amount, currency)
}

// FormatPlanPrice formats a plan's price with its billing interval.
// Free plans show no interval.
func FormatPlanPrice(p models.Plan) string {
	price := FormatPrice(p.Price, p.Currency)
	if p.Price <= 0 || p.Interval == "" {
		return price
	}
	return price + "/" + p.Interval
}

// FormatDate formats an optional timestamp for display
func FormatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "n/a"
	}
	return t.Local().Format("Jan 2, 2006")
}
