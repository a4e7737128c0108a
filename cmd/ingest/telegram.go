package main

import (
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ingest/internal/bot"
)

func botCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Answer Telegram messages with parsed transactions",
		Long: `Run a Telegram bot that parses every text message it receives.

The bot token is read from telegram.token or INGEST_TELEGRAM_TOKEN.`,
		RunE: runBot,
	}
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	b, err := bot.New(bot.Config{
		Token:   cfg.Telegram.Token,
		Workers: cfg.Telegram.Workers,
		Record:  cfg.Telegram.Record && a.store != nil,
	}, a.service, a.logger.With("component", "bot"))
	if err != nil {
		return err
	}

	return b.Run(cmd.Context())
}
