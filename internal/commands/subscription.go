package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"spactl/internal/api"
	"spactl/internal/app"
	"spactl/internal/logging"
	"spactl/internal/models"
	"spactl/internal/util"
)

var cancelYes bool

var subscriptionCmd = &cobra.Command{
	Use:   "subscription",
	Short: "Inspect or cancel your subscription",
}

var subscriptionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show your current subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}
			if err := syncSubscription(ctx, a); err != nil {
				return fmt.Errorf("failed to load subscription: %w", err)
			}
			printSubscription(cmd, a)
			return nil
		})
	},
}

var subscriptionCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel your paid subscription",
	Long:  "Cancel the current subscription. It stays active until the end of the billing period.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}

			if err := syncSubscription(ctx, a); err != nil {
				return fmt.Errorf("failed to load subscription: %w", err)
			}

			if !cancelYes {
				ok, err := newPrompter(cmd).confirm(fmt.Sprintf("Cancel your %s subscription?", a.Store.PlanName()))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing changed.")
					return nil
				}
			}

			a.Store.SetSubscriptionLoading(true)
			res, err := a.Billing.CancelSubscription(ctx)
			if err != nil {
				msg := errorMessage(err)
				a.Store.SetSubscriptionError(&msg)
				return fmt.Errorf("failed to cancel subscription: %w", err)
			}
			a.Store.SetSubscriptionLoading(false)

			cancelAtPeriodEnd := true
			a.Store.UpdateSubscription(models.SubscriptionPatch{CancelAtPeriodEnd: &cancelAtPeriodEnd})

			success.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		})
	},
}

// syncSubscription records the backend's subscription status in the store.
// A free, inactive status removes the local record instead of creating one.
func syncSubscription(ctx context.Context, a *app.App) error {
	a.Store.SetSubscriptionLoading(true)

	status, err := a.Billing.GetSubscriptionStatus(ctx)
	if err != nil {
		msg := errorMessage(err)
		a.Store.SetSubscriptionError(&msg)
		return err
	}

	current := a.Store.Snapshot().Subscription
	switch {
	case status.PlanName == models.PlanFree && !status.IsActive:
		a.Store.ClearSubscription()
	case current != nil:
		// the status endpoint knows nothing about pending cancellation, so
		// it is kept while the plan stays the same
		next := *current
		if next.PlanName != status.PlanName {
			next.CancelAtPeriodEnd = nil
		}
		next.PlanName = status.PlanName
		next.IsActive = status.IsActive
		next.CurrentPeriodEnd = status.CurrentPeriodEnd
		a.Store.SetSubscription(&next)
	default:
		a.Store.SetSubscription(&models.Subscription{
			PlanName:         status.PlanName,
			IsActive:         status.IsActive,
			CurrentPeriodEnd: status.CurrentPeriodEnd,
		})
	}
	a.Store.SetSubscriptionLoading(false)
	return nil
}

// errorMessage is the text recorded in the store for a failed request
func errorMessage(err error) string {
	if apiErr, ok := api.AsAPIError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// syncSubscriptionQuietly keeps the stored subscription when the backend can't be reached
func syncSubscriptionQuietly(ctx context.Context, a *app.App) {
	if err := syncSubscription(ctx, a); err != nil {
		a.Log.WithFields(logging.Err(err)).Debug("using stored subscription")
	}
}

func printSubscription(cmd *cobra.Command, a *app.App) {
	out := cmd.OutOrStdout()
	st := a.Store.Snapshot()

	plan := a.Store.PlanName()
	name := string(plan)
	if p, err := models.PlanByName(plan); err == nil {
		name = p.DisplayName
	}
	bold.Fprintf(out, "Plan: %s\n", name)

	sub := st.Subscription
	if sub == nil {
		fmt.Fprintln(out, "Status: no paid subscription")
		fmt.Fprintln(out, "Run 'spactl pricing' to see the available plans.")
		return
	}

	if sub.IsActive {
		success.Fprintln(out, "Status: active")
	} else {
		warning.Fprintln(out, "Status: inactive")
	}
	if sub.ID != "" {
		fmt.Fprintf(out, "Subscription ID: %s\n", sub.ID)
	}
	if sub.CancelAtPeriodEnd != nil && *sub.CancelAtPeriodEnd {
		fmt.Fprintf(out, "Ends: %s\n", util.FormatDate(sub.CurrentPeriodEnd))
	} else {
		fmt.Fprintf(out, "Renews: %s\n", util.FormatDate(sub.CurrentPeriodEnd))
	}
}

func init() {
	subscriptionCmd.AddCommand(subscriptionStatusCmd)
	subscriptionCmd.AddCommand(subscriptionCancelCmd)

	subscriptionCancelCmd.Flags().BoolVarP(&cancelYes, "yes", "y", false, "Do not ask for confirmation")
}
