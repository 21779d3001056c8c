package domain

import (
	"errors"
	"fmt"
)

// Failure taxonomy. Every failure is recoverable at the call site and carries
// a reason code plus the offending input; none is ever paired with a partial
// result.

type ParseReason string

const (
	ParseNotASignal            ParseReason = "NOT_A_SIGNAL"
	ParseUnrecognizedDirection ParseReason = "UNRECOGNIZED_DIRECTION"
	ParseIncompleteMessage     ParseReason = "INCOMPLETE_MESSAGE"
	ParseInvalidPrice          ParseReason = "INVALID_PRICE"
)

type ParseError struct {
	Reason ParseReason
	Input  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse failed (%s): %q", e.Reason, e.Input)
}

type RuleNotFoundReason string

const (
	RuleUnknownAsset     RuleNotFoundReason = "UNKNOWN_ASSET"
	RuleUnknownTimeframe RuleNotFoundReason = "UNKNOWN_TIMEFRAME"
)

type RuleNotFoundError struct {
	Reason RuleNotFoundReason
	Token  string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("rule not found (%s): %q", e.Reason, e.Token)
}

type CalcReason string

const (
	CalcMissingEntryPrice CalcReason = "MISSING_ENTRY_PRICE"
	CalcZeroRiskDistance  CalcReason = "ZERO_RISK_DISTANCE"
	CalcPriceUnavailable  CalcReason = "PRICE_UNAVAILABLE"
)

type CalculationError struct {
	Reason CalcReason
	Detail string
}

func (e *CalculationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("calculation failed (%s)", e.Reason)
	}
	return fmt.Sprintf("calculation failed (%s): %s", e.Reason, e.Detail)
}

type PipelineStage string

const (
	StageParse     PipelineStage = "parse"
	StageResolve   PipelineStage = "resolve"
	StagePrice     PipelineStage = "price"
	StageCalculate PipelineStage = "calculate"
)

// PipelineError tags a stage failure with its originating stage so callers
// can decide what to surface.
type PipelineError struct {
	Stage PipelineStage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsNotASignal reports whether err is the one failure callers should swallow
// silently (ordinary chat chatter).
func IsNotASignal(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Reason == ParseNotASignal
}

// FailureReason extracts the reason code from any taxonomy error, for
// rejection messages and journaling. Unknown errors yield "INTERNAL".
func FailureReason(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return string(pe.Reason)
	}
	var re *RuleNotFoundError
	if errors.As(err, &re) {
		return string(re.Reason)
	}
	var ce *CalculationError
	if errors.As(err, &ce) {
		return string(ce.Reason)
	}
	return "INTERNAL"
}
