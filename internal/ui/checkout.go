package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"spactl/internal/models"
)

// ConfirmFunc verifies a completed checkout. It must return promptly once
// ctx is done.
type ConfirmFunc func(ctx context.Context) (*models.Subscription, error)

// CheckoutModel shows progress while a checkout is confirmed. Quitting
// while the confirmation is pending cancels it.
type CheckoutModel struct {
	Spinner      spinner.Model
	SessionID    string
	IsLoading    bool
	Subscription *models.Subscription
	Err          error
	Cancelled    bool

	ctx     context.Context
	cancel  context.CancelFunc
	confirm ConfirmFunc
}

func NewCheckoutModel(ctx context.Context, sessionID string, confirm ConfirmFunc) CheckoutModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(pink)

	ctx, cancel := context.WithCancel(ctx)
	return CheckoutModel{
		Spinner:   s,
		SessionID: sessionID,
		IsLoading: true,
		ctx:       ctx,
		cancel:    cancel,
		confirm:   confirm,
	}
}

func (m CheckoutModel) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, m.run())
}

type checkoutConfirmedMsg struct{ sub *models.Subscription }
type checkoutFailedMsg struct{ err error }

func (m CheckoutModel) run() tea.Cmd {
	ctx, confirm := m.ctx, m.confirm
	return func() tea.Msg {
		sub, err := confirm(ctx)
		if err != nil {
			return checkoutFailedMsg{err}
		}
		return checkoutConfirmedMsg{sub}
	}
}

func (m CheckoutModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.IsLoading {
				m.Cancelled = true
			}
			m.cancel()
			return m, tea.Quit
		case "enter":
			if !m.IsLoading {
				m.cancel()
				return m, tea.Quit
			}
		case "r":
			if !m.IsLoading && m.Err != nil {
				m.IsLoading = true
				m.Err = nil
				return m, tea.Batch(m.Spinner.Tick, m.run())
			}
		}

	case spinner.TickMsg:
		if !m.IsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case checkoutConfirmedMsg:
		if m.Cancelled {
			return m, nil
		}
		m.IsLoading = false
		m.Subscription = msg.sub
		return m, nil

	case checkoutFailedMsg:
		if m.Cancelled {
			return m, nil
		}
		m.IsLoading = false
		m.Err = msg.err
		return m, nil
	}

	return m, nil
}

func (m CheckoutModel) View() string {
	var body string

	switch {
	case m.IsLoading:
		body = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(m.Spinner.View()+" Processing your subscription..."),
			statusStyle.Render("Please wait while we confirm your payment."),
		)

	case m.Err != nil:
		body = lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Foreground(yellow).Render("Payment Received"),
			statusStyle.Render("Your payment was successful, but we encountered an issue verifying your subscription."),
			statusStyle.Render("Please check your dashboard or contact support if your subscription doesn't appear."),
			errorStyle.Render(m.Err.Error()),
			"",
			statusStyle.Render("Press r to try again, q to quit"),
		)

	default:
		lines := []string{
			titleStyle.Foreground(green).Render("Subscription Activated!"),
			statusStyle.Render("Thank you for subscribing! Your account has been upgraded."),
		}
		if m.Subscription != nil {
			lines = append(lines, statusStyle.Render(fmt.Sprintf("Plan: %s", m.Subscription.PlanName)))
		}
		if m.SessionID != "" {
			lines = append(lines, statusStyle.Render("Transaction ID: "+m.SessionID))
		}
		lines = append(lines, "", statusStyle.Render("Run 'spactl dashboard' to see your account. Press enter to exit"))
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	return body + "\n"
}
