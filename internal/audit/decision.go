package audit

import (
	"io"
	"time"

	"github.com/halligan/tradegate/internal/risk"
)

// Decision is the outcome of a risk evaluation.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// DecisionEntry is one risk decision with the full per-check breakdown.
type DecisionEntry struct {
	Timestamp    time.Time                   `json:"timestamp"`
	SignalID     string                      `json:"signal_id"`
	StrategyID   string                      `json:"strategy_id"`
	Symbol       string                      `json:"symbol"`
	Decision     Decision                    `json:"decision"`
	CheckResults map[string]risk.CheckResult `json:"check_results"`
	Errors       []string                    `json:"errors"`
	Metadata     map[string]any              `json:"metadata"`
}

// DecisionLog records every risk decision, approved or not.
type DecisionLog struct {
	stream *stream[DecisionEntry]
}

// NewDecisionLog builds a decision log writing NDJSON to w. A nil writer
// keeps entries in memory only, which tests and dry runs use.
func NewDecisionLog(w io.Writer) *DecisionLog {
	return &DecisionLog{stream: newStream[DecisionEntry](w)}
}

// Record writes a decision entry, stamping the timestamp and normalizing
// nil collections so every line carries the same shape.
func (l *DecisionLog) Record(entry DecisionEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.CheckResults == nil {
		entry.CheckResults = map[string]risk.CheckResult{}
	}
	if entry.Errors == nil {
		entry.Errors = []string{}
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]any{}
	}
	return l.stream.record(entry)
}

// Recent returns up to limit of the newest decisions, optionally filtered
// by strategy, oldest first.
func (l *DecisionLog) Recent(strategyID string, limit int) []DecisionEntry {
	var keep func(DecisionEntry) bool
	if strategyID != "" {
		keep = func(e DecisionEntry) bool { return e.StrategyID == strategyID }
	}
	return l.stream.tail(limit, keep)
}
