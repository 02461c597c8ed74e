package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spactl/internal/models"
	"spactl/internal/store"
	"spactl/internal/util"
)

// DashboardData is everything the dashboard shows
type DashboardData struct {
	User         *models.User
	Plan         models.PlanName
	Subscription *models.Subscription
}

// DashboardFromState reads the dashboard data out of a store snapshot
func DashboardFromState(st store.State) DashboardData {
	return DashboardData{
		User:         st.User,
		Plan:         store.PlanName(st),
		Subscription: st.Subscription,
	}
}

// Welcome is the dashboard greeting
func Welcome(u *models.User) string {
	if u != nil && u.FirstName != "" {
		return fmt.Sprintf("Welcome back, %s!", u.FirstName)
	}
	return "Welcome back!"
}

// RenderDashboard renders the dashboard without any interactive chrome
func RenderDashboard(d DashboardData, width int) string {
	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(Welcome(d.User)),
		statusStyle.Render("Here's an overview of your account."),
		"",
	)

	cards := []string{planCard(d), securityCard(), actionsCard()}

	var body string
	if width >= 3*(cardWidth+4) {
		body = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, cards...)
	}

	activity := cardStyle.Render(
		headingStyle.Render("Recent Activity") + "\n\n" +
			mutedStyle.Render("No recent activity to display."),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, activity)
}

func planCard(d DashboardData) string {
	plan := d.Plan
	if plan == "" {
		plan = models.PlanFree
	}

	name := string(plan)
	if p, err := models.PlanByName(plan); err == nil {
		name = p.DisplayName
	}

	var b strings.Builder
	b.WriteString(headingStyle.Render("Current Plan"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(accent).Render(name))
	b.WriteString("\n")

	if sub := d.Subscription; sub != nil && plan != models.PlanFree {
		switch {
		case !sub.IsActive:
			b.WriteString(lipgloss.NewStyle().Foreground(yellow).Render("Inactive"))
		case sub.CancelAtPeriodEnd != nil && *sub.CancelAtPeriodEnd:
			b.WriteString(mutedStyle.Render("Ends " + util.FormatDate(sub.CurrentPeriodEnd)))
		default:
			b.WriteString(mutedStyle.Render("Renews " + util.FormatDate(sub.CurrentPeriodEnd)))
		}
		b.WriteString("\n")
	}

	if plan != models.PlanPremium {
		b.WriteString(mutedStyle.Render("Upgrade to unlock more features"))
		b.WriteString("\n\n")
		b.WriteString("Upgrade Plan\n")
		b.WriteString(mutedStyle.Render("spactl pricing --pick"))
	}

	return cardStyle.Width(cardWidth).Render(b.String())
}

func securityCard() string {
	return cardStyle.Width(cardWidth).Render(
		headingStyle.Render("Security Status") + "\n" +
			lipgloss.NewStyle().Foreground(green).Render("● All systems secure"),
	)
}

func actionsCard() string {
	lines := []string{
		headingStyle.Render("Quick Actions"),
		"",
		"spactl pricing",
		"spactl subscription status",
		lipgloss.NewStyle().Foreground(red).Render("spactl auth logout"),
	}
	return cardStyle.Width(cardWidth).Render(strings.Join(lines, "\n"))
}

// DashboardLoader fetches fresh dashboard data
type DashboardLoader func() (DashboardData, error)

// DashboardModel is the interactive dashboard
type DashboardModel struct {
	Viewport      viewport.Model
	Spinner       spinner.Model
	IsLoading     bool
	StatusMessage string
	ErrorMessage  string
	Data          DashboardData
	Width         int
	Height        int
	Ready         bool

	load DashboardLoader
}

// NewDashboardModel shows initial right away and refreshes it with load
func NewDashboardModel(initial DashboardData, load DashboardLoader) DashboardModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(pink)

	return DashboardModel{
		Spinner:       s,
		IsLoading:     load != nil,
		StatusMessage: "Refreshing account...",
		Data:          initial,
		load:          load,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	if m.load == nil {
		return nil
	}
	return tea.Batch(m.Spinner.Tick, m.refresh())
}

func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			if m.load == nil || m.IsLoading {
				return m, nil
			}
			m.IsLoading = true
			m.ErrorMessage = ""
			m.StatusMessage = "Refreshing account..."
			return m, tea.Batch(m.Spinner.Tick, m.refresh())
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

		if !m.Ready {
			m.Viewport = viewport.New(msg.Width, msg.Height-6)
			m.Viewport.YPosition = 3
			m.Ready = true
		} else {
			m.Viewport.Width = msg.Width
			m.Viewport.Height = msg.Height - 6
		}
		m.Viewport.SetContent(RenderDashboard(m.Data, m.Width))

		return m, nil

	case spinner.TickMsg:
		if !m.IsLoading {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.Spinner, spinnerCmd = m.Spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case dashboardLoadedMsg:
		m.IsLoading = false
		m.Data = DashboardData(msg)
		m.StatusMessage = "Up to date"
		if m.Ready {
			m.Viewport.SetContent(RenderDashboard(m.Data, m.Width))
		}
		return m, nil

	case errorMsg:
		m.IsLoading = false
		m.ErrorMessage = string(msg)
		m.StatusMessage = "Error"
		return m, nil
	}

	if m.Ready {
		var viewportCmd tea.Cmd
		m.Viewport, viewportCmd = m.Viewport.Update(msg)
		cmds = append(cmds, viewportCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m DashboardModel) View() string {
	if !m.Ready {
		return "Initializing..."
	}

	status := m.StatusMessage
	if m.IsLoading {
		status = fmt.Sprintf("%s %s", m.Spinner.View(), m.StatusMessage)
	}

	errorView := ""
	if m.ErrorMessage != "" {
		errorView = errorStyle.Render(m.ErrorMessage)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.Render("spactl - Dashboard"),
		statusStyle.Render(status),
		m.Viewport.View(),
		errorView,
		statusStyle.Render("Press q to quit, r to refresh"),
	)
}

type dashboardLoadedMsg DashboardData
type errorMsg string

func (m DashboardModel) refresh() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		data, err := load()
		if err != nil {
			return errorMsg(fmt.Sprintf("Error refreshing account: %v", err))
		}
		return dashboardLoadedMsg(data)
	}
}
