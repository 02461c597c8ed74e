package billing

import (
	"fmt"
	"io"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
)

// Navigator sends the user to an external URL
type Navigator interface {
	Navigate(url string) error
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(url string) error

func (f NavigatorFunc) Navigate(url string) error { return f(url) }

// BrowserNavigator prints the URL, copies it to the clipboard when one is
// available and opens it in the default browser
type BrowserNavigator struct {
	Out io.Writer

	// NoBrowser only prints and copies the URL
	NoBrowser bool

	open func(url string) error
}

func NewBrowserNavigator(out io.Writer, noBrowser bool) *BrowserNavigator {
	return &BrowserNavigator{Out: out, NoBrowser: noBrowser, open: browser.OpenURL}
}

func (b *BrowserNavigator) Navigate(url string) error {
	if b.Out != nil {
		fmt.Fprintf(b.Out, "Checkout URL: %s\n", url)
	}

	if !clipboard.Unsupported {
		if err := clipboard.WriteAll(url); err == nil && b.Out != nil {
			fmt.Fprintln(b.Out, "(copied to clipboard)")
		}
	}

	if b.NoBrowser {
		return nil
	}

	open := b.open
	if open == nil {
		open = browser.OpenURL
	}
	if err := open(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return nil
}
