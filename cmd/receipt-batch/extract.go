package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newExtractCmd(a *app) *cobra.Command {
	var compact bool
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Run the extraction pipeline over OCR text and print JSON",
		Long: `extract reads already-recognized receipt text from a file, or from stdin when the
argument is "-" or missing, and prints the extracted record. No OCR or database is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)
			if len(args) == 0 || args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			p, err := a.pipeline()
			if err != nil {
				return err
			}
			res := p.Extract(string(raw), nil)

			enc := json.NewEncoder(cmd.OutOrStdout())
			if !compact {
				enc.SetIndent("", "  ")
			}
			return enc.Encode(res)
		},
	}
	cmd.Flags().BoolVar(&compact, "compact", false, "print single-line JSON")
	return cmd
}
