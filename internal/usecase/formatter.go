package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

type Template string

const (
	TemplateStandard Template = "standard"
	TemplateCompact  Template = "compact"
	TemplateMinimal  Template = "minimal"
)

// RenderedSignal is a LevelResult rendered for every delivery surface.
type RenderedSignal struct {
	Telegram string
	Plain    string
	Payload  WebhookPayload
}

// WebhookPayload is the machine-readable form posted to downstream hooks.
// Prices travel as strings to keep the decimal representation exact.
type WebhookPayload struct {
	Action    string `json:"action"`
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Entry     string `json:"entry"`
	TP1       string `json:"tp1"`
	TP2       string `json:"tp2"`
	TP3       string `json:"tp3"`
	SL        string `json:"sl"`
	RR        string `json:"rr"`
	Timestamp string `json:"timestamp"`
}

// SignalFormatter renders LevelResult values. It owns presentation only;
// level math never happens here.
type SignalFormatter struct {
	template  Template
	signature string
	timeNow   func() time.Time
}

func NewSignalFormatter(template Template, signature string) *SignalFormatter {
	switch template {
	case TemplateStandard, TemplateCompact, TemplateMinimal:
	default:
		template = TemplateStandard
	}
	return &SignalFormatter{
		template:  template,
		signature: signature,
		timeNow:   time.Now,
	}
}

func (f *SignalFormatter) Render(res *domain.LevelResult) *RenderedSignal {
	entry := res.Entry.StringFixed(res.PriceScale)
	tp1 := res.TP1.StringFixed(res.PriceScale)
	tp2 := res.TP2.StringFixed(res.PriceScale)
	tp3 := res.TP3.StringFixed(res.PriceScale)
	sl := res.SL.StringFixed(res.PriceScale)
	now := f.timeNow().UTC()

	plain := fmt.Sprintf("%s %s %s | E: %s | TP: %s/%s/%s | SL: %s | R:R 1:%s",
		res.Direction, res.Asset, res.Timeframe, entry, tp1, tp2, tp3, sl, res.RR)

	var tg string
	switch f.template {
	case TemplateCompact:
		tg = fmt.Sprintf("%s *%s %s* | %s\nEntry: `%s`\nTP: `%s` → `%s` → `%s`\nSL: `%s` | R:R `1:%s`",
			directionEmoji(res.Direction), res.Direction, res.Asset, res.Timeframe,
			entry, tp1, tp2, tp3, sl, res.RR)
	case TemplateMinimal:
		tg = fmt.Sprintf("%s %s %s\nE: %s | TP: %s/%s/%s | SL: %s",
			directionEmoji(res.Direction), res.Asset, res.Timeframe, entry, tp1, tp2, tp3, sl)
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "%s *%s %s*\n", directionEmoji(res.Direction), res.Direction, res.Asset)
		fmt.Fprintf(&b, "⏱ Timeframe: `%s`\n", res.Timeframe)
		fmt.Fprintf(&b, "💵 Entry: `%s`\n\n", entry)
		fmt.Fprintf(&b, "🎯 *Targets:*\n")
		fmt.Fprintf(&b, "├─ TP1: `%s` (%s)\n", tp1, distLabel(res.TP1Dist.String(), res.Unit))
		fmt.Fprintf(&b, "├─ TP2: `%s` (%s)\n", tp2, distLabel(res.TP2Dist.String(), res.Unit))
		fmt.Fprintf(&b, "└─ TP3: `%s` (%s)\n\n", tp3, distLabel(res.TP3Dist.String(), res.Unit))
		fmt.Fprintf(&b, "🛡 Stop Loss: `%s` (%s)\n", sl, distLabel(res.SLDist.String(), res.Unit))
		fmt.Fprintf(&b, "📊 Risk/Reward: `1:%s`\n\n", res.RR)
		fmt.Fprintf(&b, "⏰ %s", now.Format("2006-01-02 15:04 UTC"))
		if f.signature != "" {
			fmt.Fprintf(&b, "\n_%s_", f.signature)
		}
		tg = b.String()
	}

	return &RenderedSignal{
		Telegram: tg,
		Plain:    plain,
		Payload: WebhookPayload{
			Action:    strings.ToLower(string(res.Direction)),
			Symbol:    res.Asset,
			Timeframe: res.Timeframe,
			Entry:     entry,
			TP1:       tp1,
			TP2:       tp2,
			TP3:       tp3,
			SL:        sl,
			RR:        res.RR.String(),
			Timestamp: now.Format(time.RFC3339),
		},
	}
}

func directionEmoji(d domain.Direction) string {
	if d == domain.SideShort {
		return "🔴"
	}
	return "🟢"
}

func distLabel(magnitude string, unit domain.Unit) string {
	switch unit {
	case domain.UnitPips:
		return magnitude + " pips"
	case domain.UnitPoints:
		return magnitude + " pts"
	default:
		return magnitude + "%"
	}
}
