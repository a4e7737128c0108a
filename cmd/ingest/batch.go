package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-ingest/internal/cli"
	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/pipeline"
	"github.com/Veraticus/spice-ingest/internal/validator"
)

// batchLine is one JSON line of batch output.
type batchLine struct {
	Response *pipeline.Response `json:"response,omitempty"`
	Text     string             `json:"text"`
	Error    string             `json:"error,omitempty"`
	Line     int                `json:"line"`
}

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Process a file with one text per line",
		Long: `Process every non-empty line of a file (or stdin with "-") and write one
JSON object per line to the output. Lines are processed concurrently, up to
the throttler's concurrency limit, and written in completion order.`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	addRequestFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "output file, - for stdout")

	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

func runBatch(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	lines, err := readLines(in)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	out := cmd.OutOrStdout()
	if path, _ := cmd.Flags().GetString("output"); path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer func() { _ = f.Close() }()
		out = f
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
	bar := progressbar.NewOptions(countNonEmpty(lines),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Parsing texts...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		}),
	)

	var (
		mu      sync.Mutex
		enc     = json.NewEncoder(out)
		all     []pipeline.Response
		failed  int
		process = func(ctx context.Context, n int, text string) error {
			resp, err := a.service.Process(ctx, pipeline.Request{Text: text, UserID: userID, Options: opts})

			mu.Lock()
			defer mu.Unlock()

			line := batchLine{Line: n, Text: text}
			if err != nil {
				if errors.Is(err, common.ErrPoolExhausted) || ctx.Err() != nil {
					return err
				}
				failed++
				line.Error = err.Error()
			} else {
				line.Response = &resp
				all = append(all, resp)
			}

			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			if err := bar.Add(1); err != nil {
				slog.Debug("failed to update progress bar", "error", err)
			}
			return nil
		}
	)

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(cfg.Throttle.MaxConcurrency, 1))
	for i, text := range lines {
		if strings.TrimSpace(text) == "" {
			continue
		}
		g.Go(func() error { return process(gctx, i+1, text) })
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var txns int
	merged := validator.Stats{ReasonBreakdown: map[string]int{}}
	for _, r := range all {
		txns += len(r.Transactions)
		merged.Unusual += r.Metadata.Stats.Unusual
		for k, v := range r.Metadata.Stats.ReasonBreakdown {
			merged.ReasonBreakdown[k] += v
		}
	}

	fmt.Fprintln(cmd.ErrOrStderr(), cli.RenderStats(txns, merged.Unusual, merged.ReasonBreakdown))
	if failed > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatWarning(fmt.Sprintf("%d lines failed", failed)))
	}
	return nil
}

func countNonEmpty(lines []string) int {
	n := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}
