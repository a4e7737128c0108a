package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ingest/internal/cli"
	"github.com/Veraticus/spice-ingest/internal/pipeline"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [text]",
		Short: "Extract transactions from a piece of text",
		Long: `Extract and validate transactions from text given as arguments, or read
from stdin when no arguments are given.

Example:
  ingest parse "ăn sáng 30k, taxi 80k"`,
		RunE: runParse,
	}

	addRequestFlags(cmd)
	cmd.Flags().Bool("json", false, "print the raw JSON response")

	return cmd
}

// addRequestFlags registers the flags shared by commands that build requests.
func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("user", "", "user ID for history comparison and recording")
	cmd.Flags().String("model", "", "override the configured model")
	cmd.Flags().Bool("skip-validation", false, "skip the unusual-transaction checks")
	cmd.Flags().Bool("record", false, "save the transactions to history")
}

func requestOptions(cmd *cobra.Command) (string, pipeline.Options) {
	userID, _ := cmd.Flags().GetString("user")
	model, _ := cmd.Flags().GetString("model")
	skip, _ := cmd.Flags().GetBool("skip-validation")
	record, _ := cmd.Flags().GetBool("record")
	return userID, pipeline.Options{Model: model, SkipValidation: skip, Record: record}
}

func runParse(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(data)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	userID, opts := requestOptions(cmd)
	resp, err := a.service.Process(cmd.Context(), pipeline.Request{Text: text, UserID: userID, Options: opts})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	_, err = fmt.Fprintln(out, cli.RenderResponse(resp))
	return err
}
