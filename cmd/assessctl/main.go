package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess         = 0
	ExitGuardrailFailed = 1 // evaluation ran but missed a threshold
	ExitError           = 2 // configuration or runtime error
)

// GuardrailError reports an evaluation run that completed but failed its thresholds.
type GuardrailError struct {
	Violations []string
}

func (e *GuardrailError) Error() string {
	return fmt.Sprintf("evaluation failed %d guardrail(s)", len(e.Violations))
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var guardrailErr *GuardrailError
		if errors.As(err, &guardrailErr) {
			os.Exit(ExitGuardrailFailed)
		}
		os.Exit(ExitError)
	}
}
