package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarmentow/codepencil/internal/history"
)

type historyEntry struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	Backend   string    `json:"backend"`
	Target    string    `json:"target"`
	Cells     int       `json:"cells"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var project string
	var jsonOutput bool
	var pruneDays int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent project saves, loads, conversions, and exports",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if pruneDays > 0 {
				removed, err := store.Prune(cmd.Context(), time.Now().AddDate(0, 0, -pruneDays))
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %d %s older than %d days\n", removed, plural(int(removed), "event"), pruneDays)
				return nil
			}

			target := project
			if target != "" {
				if abs, err := filepath.Abs(target); err == nil {
					target = abs
				}
			}
			events, err := store.Recent(cmd.Context(), limit, target)
			if err != nil {
				return err
			}

			if jsonOutput {
				entries := make([]historyEntry, 0, len(events))
				for _, ev := range events {
					entries = append(entries, historyEntry{
						ID:        ev.ID,
						Action:    string(ev.Action),
						Backend:   ev.Backend,
						Target:    ev.Target,
						Cells:     ev.Cells,
						Status:    ev.Status,
						Message:   ev.Message,
						CreatedAt: ev.CreatedAt,
					})
				}
				return writeJSON(cmd, entries)
			}

			if len(events) == 0 {
				fmt.Fprintln(out, "No history recorded")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				status := kindForStatus(ev.Status).paint(titleCaser.String(ev.Status), colorize)
				rows = append(rows, []string{
					strconv.FormatInt(ev.ID, 10),
					ev.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					titleCaser.String(string(ev.Action)),
					ev.Backend,
					strconv.Itoa(ev.Cells),
					status,
					ev.Target,
					ev.Message,
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "ID", Align: alignRight},
				{Header: "When"},
				{Header: "Action"},
				{Header: "Backend"},
				{Header: "Cells", Align: alignRight},
				{Header: "Status"},
				{Header: "Target", MaxWidth: 48},
				{Header: "Message", MaxWidth: 40},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum events to list")
	cmd.Flags().StringVar(&project, "project", "", "Only list events for this project path")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print events as JSON")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete events older than this many days instead of listing")
	return cmd
}
