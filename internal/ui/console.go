// Package ui implements the interactive console: user input, rendered
// model output, and the permission prompt.
package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/aide-agent/aide/internal/permission"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	gateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Console is a line-oriented terminal frontend. Model output renders as
// markdown through glamour; permission prompts read single-letter
// answers.
type Console struct {
	in       *bufio.Reader
	out      io.Writer
	renderer *glamour.TermRenderer
}

// NewConsole creates a console over the given streams.
func NewConsole(in io.Reader, out io.Writer) *Console {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		renderer = nil
	}
	return &Console{
		in:       bufio.NewReader(in),
		out:      out,
		renderer: renderer,
	}
}

// ReadLine prompts for and returns one line of user input. Returns
// io.EOF when the input stream closes.
func (c *Console) ReadLine(ctx context.Context) (string, error) {
	fmt.Fprint(c.out, promptStyle.Render("> ")+" ")
	return c.readLine(ctx)
}

// ShowText renders assistant text as markdown.
func (c *Console) ShowText(text string) {
	if c.renderer != nil {
		if rendered, err := c.renderer.Render(text); err == nil {
			fmt.Fprint(c.out, rendered)
			return
		}
	}
	fmt.Fprintln(c.out, text)
}

// ShowError prints an error message.
func (c *Console) ShowError(msg string) {
	fmt.Fprintln(c.out, errorStyle.Render("error:")+" "+msg)
}

// ShowWarning prints a warning message.
func (c *Console) ShowWarning(msg string) {
	fmt.Fprintln(c.out, warningStyle.Render("warning:")+" "+msg)
}

// Ask implements the permission prompt. Unrecognized answers re-prompt;
// a closed input stream denies.
func (c *Console) Ask(ctx context.Context, req permission.Request) (permission.Decision, error) {
	fmt.Fprintln(c.out, gateStyle.Render(fmt.Sprintf("permission: %s %s", req.Operation, req.Path)))
	if req.Detail != "" {
		fmt.Fprintln(c.out, dimStyle.Render("  "+req.Detail))
	}

	for {
		fmt.Fprint(c.out, "  [y]es once / [n]o / [a]lways / ne[v]er: ")
		line, err := c.readLine(ctx)
		if err != nil {
			return permission.DenyOnce, fmt.Errorf("reading permission answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return permission.AllowOnce, nil
		case "n", "no":
			return permission.DenyOnce, nil
		case "a", "always":
			return permission.AllowAlways, nil
		case "v", "never":
			return permission.DenyAlways, nil
		}
	}
}

// readLine reads one line, honoring context cancellation. The read
// itself cannot be interrupted, so a cancelled context abandons the
// in-flight read rather than unblocking it.
func (c *Console) readLine(ctx context.Context) (string, error) {
	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := c.in.ReadString('\n')
		ch <- result{strings.TrimRight(line, "\r\n"), err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil && r.line == "" {
			return "", r.err
		}
		return r.line, nil
	}
}
