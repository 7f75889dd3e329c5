package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Direction of a signal.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool { return d == DirectionLong || d == DirectionShort }

// Outcome of a resolved signal, attached by an external caller.
type Outcome string

const (
	OutcomeWin       Outcome = "WIN"
	OutcomeLoss      Outcome = "LOSS"
	OutcomeBreakeven Outcome = "BREAKEVEN"
)

// ParseOutcome validates an outcome tag.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case OutcomeWin, OutcomeLoss, OutcomeBreakeven:
		return o, nil
	default:
		return "", fmt.Errorf("unknown outcome %q", s)
	}
}

// SignalOutcome is the result attached to a record after the fact.
type SignalOutcome struct {
	Result     Outcome         `json:"result"`
	PnL        decimal.Decimal `json:"pnl"`
	ResolvedAt time.Time       `json:"resolved_at"`
}

// SignalRecord is the artifact emitted on admission.
type SignalRecord struct {
	ID          string               `json:"id"`
	CandidateID string               `json:"candidate_id,omitempty"`
	Pool        string               `json:"pool"`
	Asset       string               `json:"asset"`
	Direction   Direction            `json:"direction"`
	Tier        Tier                 `json:"tier"`
	Entry       decimal.Decimal      `json:"entry"`
	StopLoss    decimal.Decimal      `json:"stop_loss"`
	TakeProfit  decimal.Decimal      `json:"take_profit"`
	Quality     QualityScoreResult   `json:"quality"`
	Regime      RegimeClassification `json:"regime"`
	CreatedAt   time.Time            `json:"created_at"`
	ValidUntil  time.Time            `json:"valid_until"`
	Outcome     *SignalOutcome       `json:"outcome,omitempty"`
}

// CandidateRequest is one not-yet-approved signal awaiting admission.
// Windows may be omitted when the caller wants them loaded by Symbol.
type CandidateRequest struct {
	ID         string           `json:"id,omitempty"`
	Pool       string           `json:"pool,omitempty"`
	Symbol     string           `json:"symbol,omitempty"`
	Direction  Direction        `json:"direction"`
	Criteria   CriteriaResult   `json:"criteria"`
	Windows    FeatureWindows   `json:"windows,omitempty"`
	Entry      *decimal.Decimal `json:"entry,omitempty"`
	StopLoss   *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit *decimal.Decimal `json:"take_profit,omitempty"`
}
