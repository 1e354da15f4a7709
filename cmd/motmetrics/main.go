// Command motmetrics evaluates tracker output against MOTChallenge ground truth.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
