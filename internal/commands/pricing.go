package commands

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"spactl/internal/app"
	"spactl/internal/billing"
	"spactl/internal/models"
	"spactl/internal/ui"
	"spactl/internal/ui/components"
)

var (
	pricingPick bool

	successURL string
	cancelURL  string
	noBrowser  bool
)

var pricingCmd = &cobra.Command{
	Use:   "pricing",
	Short: "Show the available plans",
	Long:  "Show the plan catalogue. With --pick, choose a plan interactively and go to checkout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			out := cmd.OutOrStdout()

			if a.Session.State().IsAuthenticated {
				syncSubscriptionQuietly(ctx, a)
			}
			current := a.Store.PlanName()

			if !pricingPick {
				fmt.Fprintln(out, ui.RenderPricing(models.Plans, current, terminalWidth(out)))
				return nil
			}

			if !isTerminal(out) {
				return fmt.Errorf("--pick needs an interactive terminal; use 'spactl subscribe <plan>' instead")
			}

			picker := components.NewPlanListModel(models.Plans, current, 80, 20)
			final, err := tea.NewProgram(picker, tea.WithContext(ctx)).Run()
			if err != nil {
				return fmt.Errorf("plan picker failed: %w", err)
			}
			chosen := final.(components.PlanListModel).Chosen
			if chosen == nil {
				return nil
			}
			return subscribeTo(ctx, a, *chosen, out)
		})
	},
}

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <plan>",
	Short: "Subscribe to a plan",
	Long:  "Start checkout for a plan, given by name (free, pro, premium) or id (plan_pro)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		plan, err := models.FindPlan(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			return subscribeTo(ctx, a, plan, cmd.OutOrStdout())
		})
	},
}

// subscribeTo decides what subscribing to plan means for the current
// account and starts checkout when a payment is needed
func subscribeTo(ctx context.Context, a *app.App, plan models.Plan, out io.Writer) error {
	if err := requireLogin(a); err != nil {
		return err
	}

	syncSubscriptionQuietly(ctx, a)

	switch billing.Decide(a.Store.Snapshot(), plan) {
	case billing.ActionAlreadyOn:
		fmt.Fprintf(out, "You are already on the %s plan.\n", plan.DisplayName)
		return nil

	case billing.ActionCancelToDowngrade:
		warning.Fprintf(out, "To switch to the %s plan, cancel your current subscription with 'spactl subscription cancel'.\n", plan.DisplayName)
		return nil
	}

	a.Store.SetSubscriptionLoading(true)
	session, err := a.Billing.CreateCheckoutSession(ctx, plan.ID, billing.CheckoutOptions{
		SuccessURL: successURL,
		CancelURL:  cancelURL,
	})
	if err != nil {
		msg := errorMessage(err)
		a.Store.SetSubscriptionError(&msg)
		return fmt.Errorf("failed to start checkout: %w", err)
	}
	a.Store.SetSubscriptionLoading(false)

	fmt.Fprintf(out, "Redirecting to checkout for the %s plan...\n", plan.DisplayName)
	if err := billing.RedirectToCheckout(newNavigator(out, noBrowser), session.CheckoutURL); err != nil {
		return err
	}

	fmt.Fprintf(out, "After paying, run 'spactl checkout success --session-id %s'\n", session.SessionID)
	return nil
}

func init() {
	pricingCmd.Flags().BoolVar(&pricingPick, "pick", false, "Pick a plan interactively and go to checkout")

	for _, c := range []*cobra.Command{pricingCmd, subscribeCmd} {
		c.Flags().StringVar(&successURL, "success-url", "", "Where checkout returns after payment")
		c.Flags().StringVar(&cancelURL, "cancel-url", "", "Where checkout returns when cancelled")
		c.Flags().BoolVar(&noBrowser, "no-browser", false, "Print the checkout URL without opening a browser")
	}
}
