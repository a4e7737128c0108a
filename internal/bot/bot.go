// Package bot serves the ingestion pipeline to Telegram users over long polling.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-ingest/internal/common"
	"github.com/Veraticus/spice-ingest/internal/model"
	"github.com/Veraticus/spice-ingest/internal/pipeline"
)

const helpText = `Send me what you spent or earned, in plain Vietnamese, and I'll turn it into transactions.

Examples:
  ăn sáng 30k, taxi 80k
  nhận lương 15 triệu
  chuyển khoản cho mẹ 2tr

Amounts understand k/nghìn, tr/triệu and tỷ.`

// Processor runs transaction text through the pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
}

// Sender delivers messages to Telegram.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Config holds bot settings.
type Config struct {
	Token string
	// Workers bounds how many messages are processed at once.
	Workers int
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
	// Record persists parsed transactions per Telegram user.
	Record bool
}

// Bot answers Telegram messages.
type Bot struct {
	api       *tgbotapi.BotAPI
	sender    Sender
	processor Processor
	logger    *slog.Logger
	cfg       Config
}

// New connects to Telegram with cfg.Token.
func New(cfg Config, processor Processor, logger *slog.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram token: %w", common.ErrMissingConfig)
	}

	var api *tgbotapi.BotAPI
	err := common.Retry(context.Background(), common.RetryOptions{Logger: logger, Name: "telegram connect"}, func(context.Context) error {
		var err error
		api, err = tgbotapi.NewBotAPI(cfg.Token)
		if err != nil && strings.Contains(err.Error(), "Unauthorized") {
			return common.Permanent(err)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}

	b := newBot(cfg, api, processor, logger)
	b.api = api
	b.logger.Info("Authorized on Telegram", "account", api.Self.UserName)
	return b, nil
}

func newBot(cfg Config, sender Sender, processor Processor, logger *slog.Logger) *Bot {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60
	}
	return &Bot{
		sender:    sender,
		processor: processor,
		logger:    common.LoggerOrDefault(logger),
		cfg:       cfg,
	}
}

// Run polls for updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return errors.New("bot is not connected")
	}

	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		b.logger.Warn("failed to delete webhook", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout
	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Polling Telegram for updates")

	g := &errgroup.Group{}
	g.SetLimit(b.cfg.Workers)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			_ = g.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				_ = g.Wait()
				return nil
			}
			g.Go(func() error {
				b.handleUpdate(ctx, update)
				return nil
			})
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			b.reply(msg.Chat.ID, helpText)
		default:
			b.reply(msg.Chat.ID, "Unknown command. Send /help for examples.")
		}
		return
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	userID := ""
	if msg.From != nil {
		userID = "tg:" + strconv.FormatInt(msg.From.ID, 10)
	}

	resp, err := b.processor.Process(ctx, pipeline.Request{
		Text:    text,
		UserID:  userID,
		Options: pipeline.Options{Record: b.cfg.Record},
	})
	if err != nil {
		b.logger.Error("failed to process message", "chat_id", msg.Chat.ID, "error", err)
		b.reply(msg.Chat.ID, errorReply(err))
		return
	}

	b.reply(msg.Chat.ID, FormatReply(resp))
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

func errorReply(err error) string {
	var userErr *common.UserError
	switch {
	case errors.Is(err, common.ErrPoolExhausted):
		return "The service is out of API capacity right now. Please try again later."
	case errors.As(err, &userErr):
		return userErr.UserMessage
	default:
		return "Something went wrong while reading your message. Please try again."
	}
}

// FormatReply renders a response as a plain-text Telegram message.
func FormatReply(resp pipeline.Response) string {
	var b strings.Builder
	b.WriteString(resp.AnalysisSummary)

	for i, t := range resp.Transactions {
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "%d. %s %s: %sđ", i+1, typeMarker(t.Type), t.Description, model.FormatVND(t.Amount))
		if t.CategoryID != "" {
			fmt.Fprintf(&b, " [%s]", t.CategoryID)
		}
		for _, reason := range t.UnusualReasons {
			b.WriteString("\n   ⚠ ")
			b.WriteString(reason)
		}
	}
	return b.String()
}

func typeMarker(t model.TransactionType) string {
	switch t {
	case model.TypeIncome:
		return "+"
	case model.TypeTransfer:
		return "↔"
	default:
		return "-"
	}
}
