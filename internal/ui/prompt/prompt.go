// Package prompt implements the interactive surfaces: typed destroy
// confirmations and styled run summaries. Destructive confirmations require
// the operator to retype an exact phrase; non-interactive sessions must pass
// --force instead, so a piped stdin can never confirm by accident.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// TypedConfirmer asks the operator to retype a confirmation phrase.
type TypedConfirmer struct{}

// ConfirmPhrase shows the summary and accepts only the exact phrase. A
// mismatched phrase or a ctrl-c is a decline, not an error: the caller treats
// it as cancellation. The error return is for sessions where the question
// cannot be asked at all.
func (TypedConfirmer) ConfirmPhrase(summary, phrase string) (bool, error) {
	if !isInteractive() {
		return false, fmt.Errorf("stdin is not a terminal; pass --force to confirm %q non-interactively", phrase)
	}

	fmt.Fprintln(os.Stderr, warningStyle.Render(summary))

	var input string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Type %q to continue", phrase)).
				Value(&input),
		),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}

	return matchPhrase(input, phrase), nil
}

func matchPhrase(input, phrase string) bool {
	return strings.TrimSpace(input) == phrase
}

func isInteractive() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}
