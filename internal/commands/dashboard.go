package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"spactl/internal/app"
	"spactl/internal/ui"
)

var dashboardPlain bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show an overview of your account",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := requireLogin(a); err != nil {
				return err
			}

			load := func() (ui.DashboardData, error) {
				if st := a.Session.RefreshUser(ctx); !st.IsAuthenticated {
					return ui.DashboardData{}, errNotLoggedIn
				}
				syncSubscriptionQuietly(ctx, a)
				return ui.DashboardFromState(a.Store.Snapshot()), nil
			}

			out := cmd.OutOrStdout()
			if dashboardPlain || !isTerminal(out) {
				data, err := load()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, ui.RenderDashboard(data, terminalWidth(out)))
				return nil
			}

			model := ui.NewDashboardModel(ui.DashboardFromState(a.Store.Snapshot()), load)
			if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return fmt.Errorf("dashboard failed: %w", err)
			}
			return nil
		})
	},
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardPlain, "plain", false, "Print the dashboard instead of the interactive view")
}
