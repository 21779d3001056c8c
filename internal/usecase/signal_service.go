package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/trade_signal_levels/internal/domain"
)

// SignalService is what the transports (Telegram bot, webhook server, CLI)
// talk to: it runs the pipeline, renders the result, journals it and keeps
// running stats. NOT_A_SIGNAL produces no side effects at all.
type SignalService struct {
	pipeline  *Pipeline
	formatter *SignalFormatter
	repo      domain.SignalRepository // may be nil
	logger    *zap.Logger

	mu    sync.Mutex
	stats Stats
}

type Stats struct {
	SignalsSent  int64
	Errors       int64
	LastSignalAt time.Time
}

// ProcessedSignal pairs the computed levels with their rendered forms and
// the journaled record.
type ProcessedSignal struct {
	Result   *domain.LevelResult
	Rendered *RenderedSignal
	Record   *domain.SignalRecord
}

func NewSignalService(pipeline *Pipeline, formatter *SignalFormatter, repo domain.SignalRepository, logger *zap.Logger) *SignalService {
	return &SignalService{
		pipeline:  pipeline,
		formatter: formatter,
		repo:      repo,
		logger:    logger,
	}
}

// HandleMessage processes one raw message coming from the named source.
func (s *SignalService) HandleMessage(ctx context.Context, raw, source string) (*ProcessedSignal, error) {
	result, err := s.pipeline.Process(ctx, raw)
	if err != nil {
		if !domain.IsNotASignal(err) {
			s.mu.Lock()
			s.stats.Errors++
			s.mu.Unlock()
			s.logger.Warn("signal rejected",
				zap.String("source", source),
				zap.String("reason", domain.FailureReason(err)),
				zap.Error(err))
		}
		return nil, err
	}

	record := &domain.SignalRecord{
		ID:         uuid.NewString(),
		Direction:  result.Direction,
		Asset:      result.Asset,
		Timeframe:  result.Timeframe,
		Entry:      result.Entry,
		TP1:        result.TP1,
		TP2:        result.TP2,
		TP3:        result.TP3,
		SL:         result.SL,
		RR:         result.RR,
		Source:     source,
		RawMessage: raw,
		CreatedAt:  time.Now().UTC(),
	}

	if s.repo != nil {
		if err := s.repo.SaveSignal(ctx, record); err != nil {
			// Journaling is best effort; the signal is still delivered.
			s.logger.Error("failed to journal signal", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.stats.SignalsSent++
	s.stats.LastSignalAt = record.CreatedAt
	s.mu.Unlock()

	return &ProcessedSignal{
		Result:   result,
		Rendered: s.formatter.Render(result),
		Record:   record,
	}, nil
}

func (s *SignalService) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}
