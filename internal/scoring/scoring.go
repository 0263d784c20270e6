// Package scoring applies the weighted rule set to an IndicatorSnapshot and
// produces a LONG/SHORT/none decision with SL/TP, combining a
// weighted-factor score with a human-readable reasoning list across the
// full thirteen-indicator rule table.
package scoring

import (
	"fmt"

	"signal-engine/internal/candle"
	"signal-engine/internal/config"
	"signal-engine/internal/errs"
	"signal-engine/internal/indicator"
)

// Direction is the decision a scan produces for one symbol.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	None  Direction = ""
)

// Decision is the full output of one ScoringEngine.Score call.
type Decision struct {
	Direction     Direction
	Entry         float64
	SL            float64
	TP            float64
	Confidence    float64
	ConditionsMet map[string]bool
	Reasons       []string
}

// Engine is stateless; New exists only for symmetry with the rest of the
// pipeline's constructor style.
type Engine struct{}

func New() *Engine { return &Engine{} }

// Score evaluates both directions' rule tables against snap and returns
// the resulting decision. A nil Decision with a nil error means "no
// signal" (confidence below threshold, or a tie). A non-nil error is only
// returned for errs.SignalUnpriceable (the computed SL or TP is
// non-positive).
func (e *Engine) Score(series candle.Series, snap indicator.Snapshot, cfg config.SignalConfig) (*Decision, error) {
	last, ok := series.Last()
	if !ok {
		return nil, nil
	}

	longScore, longConditions, longReasons := evaluate(Long, series, snap, cfg)
	shortScore, shortConditions, shortReasons := evaluate(Short, series, snap, cfg)

	maxScore := cfg.Weights.MaxScore()
	longConfidence := longScore / maxScore
	shortConfidence := shortScore / maxScore

	var direction Direction
	var confidence float64
	var conditions map[string]bool
	var reasons []string

	switch {
	case longConfidence == shortConfidence:
		return nil, nil // tie-break to none, including the 0/0 case
	case longConfidence >= cfg.MinConfidence && longConfidence > shortConfidence:
		direction, confidence, conditions, reasons = Long, longConfidence, longConditions, longReasons
	case shortConfidence >= cfg.MinConfidence && shortConfidence > longConfidence:
		direction, confidence, conditions, reasons = Short, shortConfidence, shortConditions, shortReasons
	default:
		return nil, nil
	}

	entry := last.Close
	sl, tp := slAndTP(direction, entry, snap.ATR, cfg)
	if sl <= 0 || tp <= 0 {
		return nil, errs.New(errs.SignalUnpriceable,
			fmt.Sprintf("%s entry=%v atr=%v produced non-positive sl=%v tp=%v", direction, entry, snap.ATR, sl, tp))
	}

	return &Decision{
		Direction:     direction,
		Entry:         entry,
		SL:            sl,
		TP:            tp,
		Confidence:    confidence,
		ConditionsMet: conditions,
		Reasons:       reasons,
	}, nil
}

func slAndTP(dir Direction, entry, atr float64, cfg config.SignalConfig) (sl, tp float64) {
	if indicator.Undefined(atr) {
		return 0, 0
	}
	switch dir {
	case Long:
		return entry - cfg.SLATRMultiplier*atr, entry + cfg.TPATRMultiplier*atr
	case Short:
		return entry + cfg.SLATRMultiplier*atr, entry - cfg.TPATRMultiplier*atr
	default:
		return 0, 0
	}
}
