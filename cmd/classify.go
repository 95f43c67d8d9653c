package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sells-group/concierge/internal/classify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <message>",
	Short: "Print the intent the rules assign to a message",
	Long:  "Runs the intent rules against a single message and prints the assigned intent, the fetch target when one was found, and whether the body was detected as pasted source content.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := classify.Classify(strings.Join(args, " "), nil)

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "intent: %s\n", res.Intent)
		if res.Target != "" {
			fmt.Fprintf(w, "target: %s\n", res.Target)
		}
		if res.PastedText != "" {
			fmt.Fprintf(w, "pasted: %d chars\n", len(res.PastedText))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
