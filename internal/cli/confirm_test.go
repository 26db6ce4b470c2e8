package cli

import (
	"bytes"
	"strings"
	"testing"
)

func newTestConfirmer(input string, tty bool) (*Confirmer, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return &Confirmer{
		Stdin:  strings.NewReader(input),
		Stdout: out,
		Stderr: &bytes.Buffer{},
		IsTTY:  func() bool { return tty },
	}, out
}

func TestConfirmYesFlagSkipsPrompt(t *testing.T) {
	c, out := newTestConfirmer("", false)

	result := c.Confirm(&CancelSummary{JobID: "job-1"}, true)
	if result != ConfirmYes {
		t.Errorf("expected ConfirmYes, got %v", result)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output with --yes, got %q", out.String())
	}
}

func TestConfirmNonInteractive(t *testing.T) {
	c, _ := newTestConfirmer("", false)

	if result := c.Confirm(&CancelSummary{JobID: "job-1"}, false); result != ConfirmNonInteractive {
		t.Errorf("expected ConfirmNonInteractive, got %v", result)
	}
}

func TestConfirmAnswers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  ConfirmResult
	}{
		{"yes", "y\n", ConfirmYes},
		{"yes word", "yes\n", ConfirmYes},
		{"uppercase yes", "Y\n", ConfirmYes},
		{"no", "n\n", ConfirmNo},
		{"empty defaults to no", "\n", ConfirmNo},
		{"garbage is no", "whatever\n", ConfirmNo},
		{"eof is no", "", ConfirmNo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestConfirmer(tt.input, true)
			if got := c.Confirm(&CancelSummary{JobID: "job-1"}, false); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestConfirmPrintsSummary(t *testing.T) {
	c, out := newTestConfirmer("n\n", true)

	c.Confirm(&CancelSummary{
		JobID:       "job-1",
		Status:      "processing",
		CurrentStep: "Extracting ingredients",
	}, false)

	output := out.String()
	for _, want := range []string{"job-1", "processing", "Extracting ingredients", "Cancel this job?"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}
