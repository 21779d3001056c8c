package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vitos/trade_signal_levels/internal/domain"
	"github.com/vitos/trade_signal_levels/internal/usecase"
)

// Bot is the chat boundary: it long-polls for updates, feeds free text into
// the signal service and replies with the rendered levels. Ordinary chatter
// (NOT_A_SIGNAL) is ignored without any reply; every other failure comes
// back to the sender as a rejection message with its stage and reason, never
// a stack trace.
type Bot struct {
	api       *tgbotapi.BotAPI
	service   *usecase.SignalService
	rules     *usecase.RuleStore
	channelID int64 // broadcast target, 0 when unset
	logger    *zap.Logger
}

func NewBot(token string, channelID int64, service *usecase.SignalService, rules *usecase.RuleStore, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}

	return &Bot{
		api:       api,
		service:   service,
		rules:     rules,
		channelID: channelID,
		logger:    logger,
	}, nil
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Telegram bot started", zap.String("username", b.api.Self.UserName))

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			if update.Message.IsCommand() {
				b.handleCommand(update.Message)
			} else {
				b.handleText(ctx, update.Message)
			}
		}
	}
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.reply(msg, "Send a signal in the form:\n`LONG BTCUSD M5`\n`SHORT GOLD M1`\n`BUY ETH H1 @2450`\n\nCommands: /help /assets /stats")
	case "help":
		b.reply(msg, "*Format:* `DIRECTION ASSET TIMEFRAME [@price]`\n\n"+
			"*Directions:* LONG, SHORT, BUY, SELL\n"+
			"*Timeframes:* M1, M5, M15, H1, H4 (also `5`, `15m`, `1h`)\n\n"+
			"Examples:\n• `LONG BTCUSD M5`\n• `BUY GOLD 1m @2350.50`\n• `sell eth 15m`")
	case "assets":
		assets := b.rules.Assets()
		if len(assets) == 0 {
			b.reply(msg, "No assets configured.")
			return
		}
		b.reply(msg, "*Available assets:*\n• `"+strings.Join(assets, "`\n• `")+"`")
	case "stats":
		stats := b.service.Stats()
		last := "none"
		if !stats.LastSignalAt.IsZero() {
			last = stats.LastSignalAt.UTC().Format("2006-01-02 15:04:05 UTC")
		}
		b.reply(msg, fmt.Sprintf("Signals sent: %d\nErrors: %d\nLast signal: %s",
			stats.SignalsSent, stats.Errors, last))
	}
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	processed, err := b.service.HandleMessage(ctx, msg.Text, "telegram")
	if err != nil {
		if domain.IsNotASignal(err) {
			return
		}
		b.reply(msg, rejectionText(err))
		return
	}

	b.reply(msg, processed.Rendered.Telegram)

	if b.channelID != 0 && b.channelID != msg.Chat.ID {
		broadcast := tgbotapi.NewMessage(b.channelID, processed.Rendered.Telegram)
		broadcast.ParseMode = tgbotapi.ModeMarkdown
		if _, err := b.api.Send(broadcast); err != nil {
			b.logger.Error("failed to broadcast signal", zap.Error(err))
		}
	}
}

func (b *Bot) reply(msg *tgbotapi.Message, text string) {
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(reply); err != nil {
		b.logger.Error("failed to send reply", zap.Error(err))
	}
}

func rejectionText(err error) string {
	reason := domain.FailureReason(err)
	switch reason {
	case string(domain.ParseUnrecognizedDirection):
		return "❌ Direction not recognized. Use LONG/SHORT/BUY/SELL."
	case string(domain.ParseIncompleteMessage):
		return "❌ Incomplete signal. Format: `DIRECTION ASSET TIMEFRAME [@price]`"
	case string(domain.ParseInvalidPrice):
		return "❌ Price is malformed. Use `@65000` or `@2350.50`."
	case string(domain.RuleUnknownAsset):
		return "❌ Asset not configured. Send /assets for the list."
	case string(domain.RuleUnknownTimeframe):
		return "❌ Timeframe not configured for this asset."
	case string(domain.CalcPriceUnavailable):
		return "❌ No live price available right now; add an explicit `@price`."
	default:
		return "❌ Signal rejected: " + reason
	}
}
