package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"spactl/internal/app"
	"spactl/internal/billing"
	"spactl/internal/config"
)

var (
	globalConfig *config.Config

	// appOptions is handed to app.New for every command
	appOptions app.Options

	// newNavigator builds what subscribe uses to send the user to checkout
	newNavigator = func(out io.Writer, noBrowser bool) billing.Navigator {
		return billing.NewBrowserNavigator(out, noBrowser)
	}

	verbose bool
)

var errNotLoggedIn = errors.New("please log in first (run 'spactl auth login')")

var rootCmd = &cobra.Command{
	Use:   "spactl",
	Short: "spactl - account and subscription client",
	Long: `spactl signs you in to the service, shows the pricing plans and takes you
through checkout, and keeps your session and subscription state between runs.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if globalConfig == nil {
			path, err := config.GetGlobalConfigPath()
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			globalConfig = cfg
		}
		if verbose {
			globalConfig.LogLevel = "debug"
		}
		return nil
	},
}

// Execute runs the root command. A nil cfg is loaded from the global config path.
func Execute(ctx context.Context, cfg *config.Config) error {
	globalConfig = cfg
	return rootCmd.ExecuteContext(ctx)
}

// withApp wires the services, restores the stored session and runs fn
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	a, err := app.New(globalConfig, appOptions)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a.Start(ctx)

	return fn(ctx, a)
}

func requireLogin(a *app.App) error {
	if !a.Session.State().IsAuthenticated {
		return errNotLoggedIn
	}
	return nil
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(f.Fd())
}

func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(f.Fd())
	if err != nil {
		return 0
	}
	return width
}

// prompter reads answers from the command's input
type prompter struct {
	in  io.Reader
	out io.Writer
	r   *bufio.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{in: in, out: cmd.OutOrStdout(), r: bufio.NewReader(in)}
}

func (p *prompter) line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	s, err := p.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && s != "") {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return strings.TrimSpace(s), nil
}

// password hides input on a terminal and falls back to a plain line otherwise
func (p *prompter) password(label string) (string, error) {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(f.Fd()) {
		fmt.Fprint(p.out, label)
		b, err := term.ReadPassword(f.Fd())
		fmt.Fprintln(p.out) // Add a newline after password input
		if err != nil {
			return "", fmt.Errorf("error reading password: %w", err)
		}
		return string(b), nil
	}
	return p.line(label)
}

func (p *prompter) confirm(label string) (bool, error) {
	answer, err := p.line(label + " [y/N]: ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

var (
	success = color.New(color.FgGreen)
	warning = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	bold    = color.New(color.Bold)
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(pricingCmd)
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(subscriptionCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(configCmd)
}
