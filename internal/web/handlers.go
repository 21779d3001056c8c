package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// tradingViewPayload is the alert format TradingView posts. Numeric fields
// arrive as JSON numbers or strings depending on the alert template, hence
// json.Number.
type tradingViewPayload struct {
	Action    string      `json:"action"`
	Ticker    string      `json:"ticker"`
	Symbol    string      `json:"symbol"`
	Close     json.Number `json:"close"`
	Price     json.Number `json:"price"`
	Interval  string      `json:"interval"`
	Timeframe string      `json:"timeframe"`
	Secret    string      `json:"secret"`
}

func (p *tradingViewPayload) signalLine() string {
	symbol := p.Ticker
	if symbol == "" {
		symbol = p.Symbol
	}
	interval := p.Interval
	if interval == "" {
		interval = p.Timeframe
	}
	price := p.Close.String()
	if price == "" {
		price = p.Price.String()
	}

	line := fmt.Sprintf("%s %s %s", p.Action, symbol, interval)
	if price != "" && price != "0" {
		line += " @" + price
	}
	return line
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "trade-signal-levels",
		"status":    "running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"assets": len(s.rules.Assets()),
		"stats":  s.service.Stats(),
	})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload tradingViewPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	if s.secret != "" && payload.Secret != s.secret {
		s.logger.Warn("webhook rejected: invalid secret")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
		return
	}

	s.processSignal(w, r, payload.signalLine())
}

func (s *Server) handleWebhookRaw(w http.ResponseWriter, r *http.Request) {
	var message string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Message string `json:"message"`
			Secret  string `json:"secret"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if s.secret != "" && body.Secret != s.secret {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
			return
		}
		message = body.Message
	} else {
		raw, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "failed to read body"})
			return
		}
		if s.secret != "" && r.Header.Get("X-Webhook-Secret") != s.secret {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
			return
		}
		message = string(raw)
	}

	s.processSignal(w, r, message)
}

func (s *Server) processSignal(w http.ResponseWriter, r *http.Request, message string) {
	processed, err := s.service.HandleMessage(r.Context(), message, "webhook")
	if err != nil {
		if domain.IsNotASignal(err) {
			// Ignorable by contract: no side effects, no user-facing error.
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}

		status := http.StatusUnprocessableEntity
		stage := domain.PipelineStage("unknown")
		var pe *domain.PipelineError
		if errors.As(err, &pe) {
			stage = pe.Stage
		} else {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, map[string]string{
			"status": "rejected",
			"stage":  string(stage),
			"reason": domain.FailureReason(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"signal": processed.Rendered.Payload,
	})
}

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "signal journal not configured"})
		return
	}

	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	records, err := s.repo.ListSignals(r.Context(), limit)
	if err != nil {
		s.logger.Error("Failed to list signals", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list signals"})
		return
	}

	type signalView struct {
		ID        string `json:"id"`
		Direction string `json:"direction"`
		Asset     string `json:"asset"`
		Timeframe string `json:"timeframe"`
		Entry     string `json:"entry"`
		TP1       string `json:"tp1"`
		TP2       string `json:"tp2"`
		TP3       string `json:"tp3"`
		SL        string `json:"sl"`
		RR        string `json:"rr"`
		Source    string `json:"source"`
		CreatedAt string `json:"created_at"`
	}

	views := make([]signalView, 0, len(records))
	for _, rec := range records {
		views = append(views, signalView{
			ID:        rec.ID,
			Direction: string(rec.Direction),
			Asset:     rec.Asset,
			Timeframe: rec.Timeframe,
			Entry:     rec.Entry.String(),
			TP1:       rec.TP1.String(),
			TP2:       rec.TP2.String(),
			TP3:       rec.TP3.String(),
			SL:        rec.SL.String(),
			RR:        rec.RR.String(),
			Source:    rec.Source,
			CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"assets": s.rules.Assets()})
}

func (s *Server) handleReloadRules(w http.ResponseWriter, r *http.Request) {
	if s.secret != "" && r.Header.Get("X-Webhook-Secret") != s.secret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid secret"})
		return
	}

	if err := s.rules.Reload(r.Context()); err != nil {
		s.logger.Error("Rule reload failed", zap.Error(err))
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "reloaded",
		"assets": s.rules.Assets(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
