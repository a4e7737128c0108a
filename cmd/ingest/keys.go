package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ingest/internal/cli"
	"github.com/Veraticus/spice-ingest/internal/keypool"
)

func keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Show credential pool status",
		Long: `Show the configured API keys with their usage and cooldowns. With --server
the status of a running "ingest serve" instance is shown instead.`,
		RunE: runKeys,
	}

	cmd.Flags().String("server", "", "base URL of a running server, e.g. http://localhost:8080")
	cmd.Flags().Bool("json", false, "print the raw JSON status")

	return cmd
}

func runKeys(cmd *cobra.Command, _ []string) error {
	var (
		st  keypool.Status
		err error
	)

	if url, _ := cmd.Flags().GetString("server"); url != "" {
		st, err = fetchKeyStatus(cmd.Context(), url)
	} else {
		st, err = localKeyStatus()
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	_, err = fmt.Fprintln(out, cli.RenderKeyStatus(st))
	return err
}

func localKeyStatus() (keypool.Status, error) {
	cfg, err := loadConfig()
	if err != nil {
		return keypool.Status{}, err
	}
	if err := cfg.RequireAPIKeys(); err != nil {
		return keypool.Status{}, err
	}

	pool := keypool.NewManager(cfg.Pool, nil)
	defer func() { _ = pool.Close() }()
	pool.AddCredentials(cfg.APIKeys...)
	return pool.Status(), nil
}

func fetchKeyStatus(ctx context.Context, baseURL string) (keypool.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + "/api/v1/keys/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return keypool.Status{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return keypool.Status{}, fmt.Errorf("failed to reach server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return keypool.Status{}, fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	var st keypool.Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return keypool.Status{}, fmt.Errorf("failed to decode status: %w", err)
	}
	return st, nil
}
