package commands

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"spactl/internal/app"
	"spactl/internal/billing"
	"spactl/internal/models"
	"spactl/internal/ui"
)

var (
	checkoutSessionID string
	checkoutDelay     time.Duration
	checkoutPlain     bool
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Finish or abandon a checkout",
}

var checkoutSuccessCmd = &cobra.Command{
	Use:   "success",
	Short: "Confirm a completed checkout",
	Long: `Confirm the subscription after paying. The backend is given a moment to
process the payment before its subscription status is read.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}

			confirm := func(ctx context.Context) (*models.Subscription, error) {
				return a.Billing.ConfirmCheckout(ctx, a.Store, checkoutSessionID, checkoutDelay)
			}

			out := cmd.OutOrStdout()
			if checkoutPlain || !isTerminal(out) {
				fmt.Fprintln(out, "Processing your subscription...")
				sub, err := confirm(ctx)
				if err != nil {
					warning.Fprintln(out, "Your payment was received, but we could not verify your subscription.")
					fmt.Fprintln(out, "Run 'spactl subscription status' to check again.")
					return err
				}
				success.Fprintln(out, "Subscription Activated!")
				fmt.Fprintf(out, "Plan: %s\n", sub.PlanName)
				if checkoutSessionID != "" {
					fmt.Fprintf(out, "Transaction ID: %s\n", checkoutSessionID)
				}
				return nil
			}

			model := ui.NewCheckoutModel(ctx, checkoutSessionID, confirm)
			final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
			if err != nil {
				return fmt.Errorf("checkout view failed: %w", err)
			}
			if m := final.(ui.CheckoutModel); m.Err != nil {
				return m.Err
			}
			return nil
		})
	},
}

var checkoutCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Acknowledge an abandoned checkout",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		bold.Fprintln(out, "Checkout Cancelled")
		fmt.Fprintln(out, "Checkout cancelled. No charges were made.")
		fmt.Fprintln(out, "Run 'spactl pricing' to look at the plans again.")
		return nil
	},
}

func init() {
	checkoutCmd.AddCommand(checkoutSuccessCmd)
	checkoutCmd.AddCommand(checkoutCancelCmd)

	checkoutSuccessCmd.Flags().StringVar(&checkoutSessionID, "session-id", "", "Checkout session id returned by subscribe")
	checkoutSuccessCmd.Flags().DurationVar(&checkoutDelay, "delay", billing.DefaultConfirmDelay, "How long to wait before checking the subscription")
	checkoutSuccessCmd.Flags().BoolVar(&checkoutPlain, "plain", false, "Print progress instead of the interactive view")
}
