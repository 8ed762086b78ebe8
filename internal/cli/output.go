package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// emit writes v as indented JSON when --output=json and calls text
// otherwise.
func emit(cmd *cobra.Command, opts *RootOptions, v any, text func(w io.Writer) error) error {
	w := cmd.OutOrStdout()
	if opts.Output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
		return nil
	}
	return text(w)
}
