package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spactl/internal/models"
	"spactl/internal/store"
)

func plan(t *testing.T, name models.PlanName) models.Plan {
	t.Helper()
	p, err := models.PlanByName(name)
	require.NoError(t, err)
	return p
}

func TestRenderPlanCard(t *testing.T) {
	free := RenderPlanCard(plan(t, models.PlanFree), false)
	assert.Contains(t, free, "$0")
	assert.NotContains(t, free, "$0/")
	assert.NotContains(t, free, popularBadge)
	assert.Contains(t, free, "Get Started Free")

	pro := RenderPlanCard(plan(t, models.PlanPro), false)
	assert.Contains(t, pro, "$29/month")
	assert.Contains(t, pro, popularBadge)
	assert.Contains(t, pro, "spactl subscribe pro")

	current := RenderPlanCard(plan(t, models.PlanPremium), true)
	assert.Contains(t, current, currentMarker)
	assert.NotContains(t, current, "spactl subscribe")
}

func TestRenderPricing_MarksCurrentPlan(t *testing.T) {
	out := RenderPricing(models.Plans, models.PlanPro, 80)

	assert.Equal(t, 1, strings.Count(out, currentMarker))
	assert.Contains(t, out, "Free")
	assert.Contains(t, out, "Premium")
}

func TestWelcome(t *testing.T) {
	assert.Equal(t, "Welcome back!", Welcome(nil))
	assert.Equal(t, "Welcome back!", Welcome(&models.User{}))
	assert.Equal(t, "Welcome back, Ada!", Welcome(&models.User{FirstName: "Ada"}))
}

func TestRenderDashboard(t *testing.T) {
	user := &models.User{ID: "1", Email: "ada@example.com", FirstName: "Ada"}

	free := RenderDashboard(DashboardFromState(store.State{User: user}), 80)
	assert.Contains(t, free, "Welcome back, Ada!")
	assert.Contains(t, free, "Free")
	assert.Contains(t, free, "Upgrade to unlock more features")
	assert.Contains(t, free, "Quick Actions")

	end := time.Date(2026, 11, 1, 12, 0, 0, 0, time.Local)
	premium := RenderDashboard(DashboardFromState(store.State{
		User: user,
		Subscription: &models.Subscription{
			ID: "sub_1", PlanName: models.PlanPremium, IsActive: true, CurrentPeriodEnd: &end,
		},
	}), 200)
	assert.Contains(t, premium, "Premium")
	assert.Contains(t, premium, "Nov 1, 2026")
	assert.NotContains(t, premium, "Upgrade to unlock more features")
}

func TestDashboardModel_LoadAndRefresh(t *testing.T) {
	calls := 0
	load := func() (DashboardData, error) {
		calls++
		return DashboardData{User: &models.User{FirstName: "Ada"}, Plan: models.PlanPro}, nil
	}

	m := NewDashboardModel(DashboardData{}, load)
	assert.True(t, m.IsLoading)
	assert.Equal(t, "Initializing...", m.View())

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(DashboardModel)
	require.True(t, m.Ready)

	msg := m.refresh()()
	next, _ = m.Update(msg)
	m = next.(DashboardModel)

	assert.False(t, m.IsLoading)
	assert.Equal(t, models.PlanPro, m.Data.Plan)
	assert.Contains(t, m.View(), "Welcome back, Ada!")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(DashboardModel)
	assert.True(t, m.IsLoading)
	assert.NotNil(t, cmd)
	assert.Equal(t, 1, calls)
}

func TestDashboardModel_Error(t *testing.T) {
	m := NewDashboardModel(DashboardData{}, func() (DashboardData, error) {
		return DashboardData{}, errors.New("offline")
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(DashboardModel)

	next, _ = m.Update(m.refresh()())
	m = next.(DashboardModel)

	assert.False(t, m.IsLoading)
	assert.Contains(t, m.ErrorMessage, "offline")
	assert.Contains(t, m.View(), "offline")
}

func TestDashboardModel_Quit(t *testing.T) {
	m := NewDashboardModel(DashboardData{}, nil)
	assert.Nil(t, m.Init())

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestCheckoutModel_Success(t *testing.T) {
	sub := &models.Subscription{ID: "cs_1", PlanName: models.PlanPro, IsActive: true}
	m := NewCheckoutModel(context.Background(), "cs_1", func(context.Context) (*models.Subscription, error) {
		return sub, nil
	})
	assert.Contains(t, m.View(), "Processing your subscription...")

	next, _ := m.Update(m.run()())
	m = next.(CheckoutModel)

	assert.False(t, m.IsLoading)
	assert.Same(t, sub, m.Subscription)
	view := m.View()
	assert.Contains(t, view, "Subscription Activated!")
	assert.Contains(t, view, "Transaction ID: cs_1")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestCheckoutModel_FailureAndRetry(t *testing.T) {
	attempts := 0
	m := NewCheckoutModel(context.Background(), "", func(context.Context) (*models.Subscription, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("Failed to verify subscription")
		}
		return &models.Subscription{ID: "sub_new", PlanName: models.PlanPro}, nil
	})

	next, _ := m.Update(m.run()())
	m = next.(CheckoutModel)
	require.Error(t, m.Err)
	assert.Contains(t, m.View(), "Payment Received")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(CheckoutModel)
	assert.True(t, m.IsLoading)
	assert.NotNil(t, cmd)

	next, _ = m.Update(m.run()())
	m = next.(CheckoutModel)
	assert.NoError(t, m.Err)
	assert.NotContains(t, m.View(), "Transaction ID")
}

func TestCheckoutModel_QuitCancelsPendingConfirmation(t *testing.T) {
	started := make(chan struct{})
	m := NewCheckoutModel(context.Background(), "cs_1", func(ctx context.Context) (*models.Subscription, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})

	result := make(chan tea.Msg, 1)
	run := m.run()
	go func() { result <- run() }()
	<-started

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(CheckoutModel)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.Cancelled)

	select {
	case msg := <-result:
		next, _ = m.Update(msg)
		m = next.(CheckoutModel)
		assert.Nil(t, m.Err, "late results are ignored after quitting")
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation was not cancelled")
	}
}
