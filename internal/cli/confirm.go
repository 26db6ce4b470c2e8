package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ConfirmResult represents the result of a confirmation prompt.
type ConfirmResult int

const (
	// ConfirmYes means the user confirmed.
	ConfirmYes ConfirmResult = iota
	// ConfirmNo means the user declined.
	ConfirmNo
	// ConfirmNonInteractive means stdin is not a TTY and --yes was not set.
	ConfirmNonInteractive
)

// CancelSummary contains the information to display before cancelling a job.
type CancelSummary struct {
	JobID       string
	Status      string
	CurrentStep string
}

// Confirmer handles interactive confirmation prompts.
type Confirmer struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// IsTTY is a function that returns true if stdin is a TTY.
	// This allows for testing by injecting a mock function.
	IsTTY func() bool
}

// NewConfirmer creates a new Confirmer with default stdin/stdout/stderr.
func NewConfirmer() *Confirmer {
	return &Confirmer{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		IsTTY:  defaultIsTTY,
	}
}

// defaultIsTTY checks if stdin is a TTY.
func defaultIsTTY() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Confirm prompts the user before cancelling an extraction job.
// Returns ConfirmYes if confirmed, ConfirmNo if declined, or
// ConfirmNonInteractive if stdin is not a TTY and yesFlag is false.
func (c *Confirmer) Confirm(summary *CancelSummary, yesFlag bool) ConfirmResult {
	// If --yes flag is set, skip prompt
	if yesFlag {
		return ConfirmYes
	}

	// Check if stdin is a TTY
	if !c.IsTTY() {
		return ConfirmNonInteractive
	}

	c.printSummary(summary)

	fmt.Fprint(c.Stdout, "Cancel this job? (y/N): ")

	reader := bufio.NewReader(c.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		// EOF or error - treat as "no"
		fmt.Fprintln(c.Stdout)
		return ConfirmNo
	}

	input = strings.TrimSpace(strings.ToLower(input))
	if input == "y" || input == "yes" {
		return ConfirmYes
	}

	return ConfirmNo
}

// printSummary prints the cancel summary to stdout.
func (c *Confirmer) printSummary(summary *CancelSummary) {
	fmt.Fprintln(c.Stdout)
	fmt.Fprintf(c.Stdout, "Job:    %s\n", summary.JobID)
	if summary.Status != "" {
		fmt.Fprintf(c.Stdout, "Status: %s\n", summary.Status)
	}
	if summary.CurrentStep != "" {
		fmt.Fprintf(c.Stdout, "Step:   %s\n", summary.CurrentStep)
	}
	fmt.Fprintln(c.Stdout, "Cancelling discards any extraction progress on the backend.")
	fmt.Fprintln(c.Stdout)
}

// ConfirmOrExit is a convenience function that handles the confirmation
// result and exits appropriately. It returns true if the user confirmed.
// If the user declines, it prints "Aborted by user." and exits with code 0.
// If non-interactive without --yes, it prints an error and exits with code 2.
func (c *Confirmer) ConfirmOrExit(summary *CancelSummary, yesFlag bool) bool {
	result := c.Confirm(summary, yesFlag)

	switch result {
	case ConfirmYes:
		return true
	case ConfirmNo:
		fmt.Fprintln(c.Stdout, "Aborted by user.")
		os.Exit(0)
	case ConfirmNonInteractive:
		fmt.Fprintln(c.Stderr, "ERROR: refusing to cancel without confirmation in non-interactive mode. Re-run with --yes.")
		os.Exit(2)
	}

	return false // unreachable
}
