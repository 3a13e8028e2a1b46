package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mrz1836/checkin/internal/record"
)

// AddRunsCommand adds the runs command group to the root command.
func AddRunsCommand(root *cobra.Command, _ *GlobalFlags) {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded check-in runs",
	}

	var output string
	show := &cobra.Command{
		Use:   "show <summary.json>",
		Short: "Display a saved run summary",
		Long: `Display the summary a run saves next to its artifacts
(checkin-<run-id>.json in the scratch directory).

Examples:
  checkin runs show /tmp/checkin-20261014-101500-ab12cd34.json
  checkin runs show /tmp/checkin-20261014-101500-ab12cd34.json -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd.OutOrStdout(), args[0], output)
		},
		SilenceUsage: true,
	}
	show.Flags().StringVarP(&output, "output", "o", OutputText, "output format (text or json)")

	cmd.AddCommand(show)
	root.AddCommand(cmd)
}

func runRunsShow(w io.Writer, path, format string) error {
	if err := validFormat(format, OutputText, OutputJSON); err != nil {
		return err
	}
	s, err := record.Load(path)
	if err != nil {
		return err
	}
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	printAttempts(w, s)
	return printRunSummary(w, OutputText, s, "")
}

// printAttempts lists every attempt, one line each.
func printAttempts(w io.Writer, s *record.Summary) {
	title := cases.Title(language.English)
	for _, a := range s.Attempts {
		line := fmt.Sprintf("Attempt %d: %s", a.Number, title.String(a.Status))
		if a.Error != "" {
			line += fmt.Sprintf(" (%s) %s", a.Kind, a.Error)
		}
		_, _ = fmt.Fprintln(w, line)
	}
}
