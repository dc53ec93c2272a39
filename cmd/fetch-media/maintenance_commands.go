package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"fetchmedia/internal/artifacts"
	"fetchmedia/internal/config"
	"fetchmedia/internal/deps"
	"fetchmedia/internal/history"
	"fetchmedia/internal/preflight"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asTable bool
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("history is disabled (history.enabled = false)")
			}
			store, err := history.Open(cmd.Context(), cfg.Paths.HistoryDB)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if !asTable {
				if entries == nil {
					entries = []history.Entry{}
				}
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No downloads recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	cmd.Flags().BoolVar(&asTable, "table", false, "Render a table instead of JSON")
	return cmd
}

func renderHistory(entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		outcome := e.Path
		if !e.Success {
			outcome = e.ErrorKind
		}
		rows = append(rows, []string{
			e.FinishedAt.Local().Format(time.DateTime),
			e.Identifier,
			e.Format,
			e.Quality,
			yesNo(e.Success),
			outcome,
		})
	}
	return renderTable(
		[]string{"Finished", "Identifier", "Format", "Quality", "OK", "Path / Error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	)
}

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var dir string
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove temporary files left behind by interrupted downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := config.ExpandPath(strings.TrimSpace(dir))
			if err != nil {
				return fmt.Errorf("resolve directory: %w", err)
			}
			maxAge := olderThan
			if !cmd.Flags().Changed("older-than") {
				maxAge = cfg.StaleAfter()
			}
			logger, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			result := artifacts.CleanStale(cmd.Context(), target, maxAge, logger)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Removed %d stale file(s) from %s\n", len(result.Removed), target)
			for _, path := range result.Removed {
				fmt.Fprintf(out, "  %s\n", path)
			}
			if len(result.Errors) > 0 {
				for _, e := range result.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "failed to remove %s: %v\n", e.Path, e.Error)
				}
				return fmt.Errorf("%d file(s) could not be removed", len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to sweep")
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age of files to remove (default download.stale_after_hours)")
	return cmd
}

type doctorReport struct {
	Checks       []doctorCheck `json:"checks"`
	Dependencies []doctorCheck `json:"dependencies"`
	Healthy      bool          `json:"healthy"`
}

type doctorCheck struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var asTable bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the environment can run downloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results, statuses := preflight.RunAll(cmd.Context(), cfg)
			rep := buildDoctorReport(results, statuses)
			if asTable {
				fmt.Fprintln(cmd.OutOrStdout(), renderDoctor(rep))
			} else if err := writeJSON(cmd, rep); err != nil {
				return err
			}
			if !rep.Healthy {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asTable, "table", false, "Render a table instead of JSON")
	return cmd
}

func buildDoctorReport(results []preflight.Result, statuses []deps.Status) doctorReport {
	rep := doctorReport{Healthy: true, Checks: []doctorCheck{}, Dependencies: []doctorCheck{}}
	for _, r := range results {
		rep.Checks = append(rep.Checks, doctorCheck{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
		if !r.Passed {
			rep.Healthy = false
		}
	}
	for _, s := range statuses {
		detail := s.Detail
		if s.Available {
			detail = strings.TrimSpace(s.Command + " " + s.Version)
		}
		rep.Dependencies = append(rep.Dependencies, doctorCheck{Name: s.Name, Passed: s.Available, Detail: detail, Optional: s.Optional})
		if !s.Available && !s.Optional {
			rep.Healthy = false
		}
	}
	return rep
}

func renderDoctor(rep doctorReport) string {
	rows := make([][]string, 0, len(rep.Checks)+len(rep.Dependencies))
	for _, c := range append(append([]doctorCheck(nil), rep.Checks...), rep.Dependencies...) {
		status := "ok"
		if !c.Passed {
			status = "FAIL"
			if c.Optional {
				status = "missing (optional)"
			}
		}
		rows = append(rows, []string{c.Name, status, c.Detail})
	}
	return renderTable([]string{"Check", "Status", "Detail"}, rows, nil) + "\nHealthy: " + strconv.FormatBool(rep.Healthy)
}
