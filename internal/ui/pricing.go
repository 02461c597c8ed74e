package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"spactl/internal/models"
	"spactl/internal/util"
)

const (
	cardWidth      = 38
	popularBadge   = "Most Popular"
	currentMarker  = "Current Plan"
	includedMark   = "✓"
	unincludedMark = "✗"
)

// RenderPlanCard renders one plan of the catalogue
func RenderPlanCard(p models.Plan, isCurrent bool) string {
	var b strings.Builder

	if p.IsPopular {
		b.WriteString(badgeStyle.Render(popularBadge))
		b.WriteString("\n\n")
	}

	b.WriteString(headingStyle.Render(p.DisplayName))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(p.Description))
	b.WriteString("\n\n")

	priceStyle := headingStyle
	if p.IsPopular {
		priceStyle = priceStyle.Foreground(accent)
	}
	b.WriteString(priceStyle.Render(util.FormatPlanPrice(p)))
	b.WriteString("\n\n")

	for _, f := range p.Features {
		if f.Included {
			b.WriteString(lipgloss.NewStyle().Foreground(green).Render(includedMark))
			b.WriteString(" " + f.Name)
		} else {
			b.WriteString(mutedStyle.Render(unincludedMark + " " + f.Name))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case isCurrent:
		b.WriteString(mutedStyle.Render(currentMarker))
	case p.Price == 0:
		b.WriteString("Get Started Free\n")
		b.WriteString(mutedStyle.Render("spactl subscribe " + string(p.Name)))
	default:
		b.WriteString("Subscribe\n")
		b.WriteString(mutedStyle.Render("spactl subscribe " + string(p.Name)))
	}

	style := cardStyle
	if p.IsPopular {
		style = popularCardStyle
	}
	return style.Width(cardWidth).Render(b.String())
}

// RenderPricing lays the plan cards out side by side when width allows,
// otherwise stacked
func RenderPricing(plans []models.Plan, current models.PlanName, width int) string {
	cards := make([]string, 0, len(plans))
	for _, p := range plans {
		cards = append(cards, RenderPlanCard(p, p.Name == current))
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Simple, transparent pricing"),
		statusStyle.Render("Choose the plan that best fits your needs."),
		"",
	)

	var body string
	if width > 0 && width >= len(plans)*(cardWidth+4) {
		body = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}
