package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fetchmedia/internal/fetch"
	"fetchmedia/internal/report"
)

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "info <identifier>",
		Short:       "Print metadata for a media resource",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{recordsFailures: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.service(cmd)
			if err != nil {
				return reportFailure(cmd, err)
			}
			defer closeFn()
			info, err := svc.Info(cmd.Context(), args[0])
			if err != nil {
				return reportFailure(cmd, err)
			}
			return writeJSON(cmd, info)
		},
	}
}

func newQualitiesCommand(ctx *commandContext) *cobra.Command {
	var asTable bool
	cmd := &cobra.Command{
		Use:         "qualities <identifier>",
		Short:       "List the resolutions a media resource is offered in",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{recordsFailures: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := ctx.service(cmd)
			if err != nil {
				return reportFailure(cmd, err)
			}
			defer closeFn()
			qualities, err := svc.Qualities(cmd.Context(), args[0])
			if err != nil {
				return reportFailure(cmd, err)
			}
			if !asTable {
				return writeJSON(cmd, qualities)
			}
			fmt.Fprintln(cmd.OutOrStdout(), qualities.Title)
			fmt.Fprintln(cmd.OutOrStdout(), renderQualities(qualities))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asTable, "table", false, "Render a table instead of JSON")
	return cmd
}

func renderQualities(q report.Qualities) string {
	rows := make([][]string, 0, len(q.Qualities))
	for _, quality := range q.Qualities {
		fps := "-"
		if quality.FPS > 0 {
			fps = strconv.Itoa(quality.FPS)
		}
		rows = append(rows, []string{quality.Label, fps, quality.Codec})
	}
	return renderTable([]string{"Quality", "FPS", "Codec"}, rows, []columnAlignment{alignLeft, alignRight, alignLeft})
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var (
		urlFlag  string
		output   string
		filename string
		format   string
		quality  string
		policy   string
	)
	cmd := &cobra.Command{
		Use:   "download [identifier]",
		Short: "Download a media resource into a single file",
		Long: "Download selects the best encodings for the requested format and quality, " +
			"retrieves them, and merges them with ffmpeg. Exactly one JSON record is printed; " +
			"the exit code is non-zero when the download failed.",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{recordsFailures: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := strings.TrimSpace(urlFlag)
			if len(args) == 1 {
				identifier = args[0]
			}
			svc, closeFn, err := ctx.service(cmd)
			if err != nil {
				return reportFailure(cmd, err)
			}
			defer closeFn()

			result := svc.Download(cmd.Context(), fetch.Request{
				Identifier: identifier,
				OutputDir:  output,
				BaseName:   filename,
				Format:     format,
				Quality:    quality,
				Policy:     policy,
			})
			if err := writeJSON(cmd, result); err != nil {
				return err
			}
			if !result.Success {
				return errReported
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&urlFlag, "url", "", "Resource identifier or URL (alternative to the positional argument)")
	cmd.Flags().StringVarP(&output, "output", "o", ".", "Destination directory")
	cmd.Flags().StringVarP(&filename, "filename", "f", "", "Base name of the output file, without extension")
	cmd.Flags().StringVar(&format, "format", "", "Output format: video|audio (mp4|mp3 accepted)")
	cmd.Flags().StringVarP(&quality, "quality", "q", "", "highest or a resolution label such as 720p")
	cmd.Flags().StringVar(&policy, "policy", "", "Selection policy override: split-first|progressive-first")
	return cmd
}
