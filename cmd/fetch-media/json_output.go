package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"fetchmedia/internal/report"
)

// recordsFailures marks commands whose every outcome is a JSON record. Their
// config is loaded inside RunE so load errors become records too.
const recordsFailures = "recordsFailures"

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// reportFailure prints err as a failure record and returns errReported so the
// process exits non-zero without repeating the message on stderr.
func reportFailure(cmd *cobra.Command, err error) error {
	if writeErr := writeJSON(cmd, report.Failure(err)); writeErr != nil {
		return writeErr
	}
	return errReported
}
