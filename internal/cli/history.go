package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/Sternrassler/swrangler/pkg/ledger"
	"github.com/spf13/cobra"
)

func (a *app) historyCmd() *cobra.Command {
	var (
		limit   int
		command string
		format  string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs.",
		Long:  "Show previous swrangler runs from the local run ledger, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Ledger == "" {
				return errors.New("run ledger disabled (set SWRANGLER_LEDGER)")
			}
			l, err := ledger.Open(a.cfg.Ledger)
			if err != nil {
				return err
			}
			defer l.Close()

			runs, err := l.List(cmd.Context(), ledger.ListParams{Command: command, Limit: limit})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if runs == nil {
					runs = []ledger.Run{}
				}
				b, _ := json.MarshalIndent(runs, "", "  ")
				fmt.Fprintln(out, string(b))
			case "text":
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCOMMAND\tSPACE\tITEMS\tSTATUS\tSTARTED\tDURATION\tERROR")
				for _, r := range runs {
					dur := "-"
					if r.FinishedAt != nil {
						dur = r.Duration().Round(time.Millisecond).String()
					}
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
						r.ID, r.Command, dash(r.SpaceKey), r.Items, r.Status,
						r.StartedAt.Local().Format(time.DateTime), dur, r.Error)
				}
				return w.Flush()
			default:
				return fmt.Errorf("unknown format %q (want text or json)", format)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Max runs to show")
	cmd.Flags().StringVar(&command, "command", "", "Only show runs of this command")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")
	return cmd
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
