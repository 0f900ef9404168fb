package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ballast-systems/ballast/internal/engine"
)

// #region types
// Context carries caller-supplied tags attached to an audit record.
// Free-form identifying strings; content is not validated.
type Context struct {
	Symbol   string `json:"symbol,omitempty"`
	Strategy string `json:"strategy,omitempty"`
	Operator string `json:"operator,omitempty"`
}

// Record is one link of the audit chain: a decision plus its chain position.
type Record struct {
	DecisionID uint64          `json:"decision_id"`
	Decision   engine.Decision `json:"decision"`
	Context    Context         `json:"context"`
	Hash       string          `json:"hash"`
	PrevHash   string          `json:"prev_hash"`
}

// #endregion types

// #region canonical
// content renders the canonical digest input. Field order and formatting are
// fixed; changing either invalidates every existing chain.
func (r Record) content() string {
	return strings.Join([]string{
		strconv.FormatInt(r.Decision.TimestampNs, 10),
		strconv.FormatUint(r.DecisionID, 10),
		r.Decision.Status.String(),
		formatFloat(r.Decision.FinalValue),
		formatFloat(r.Decision.Confidence),
		strconv.Itoa(r.Decision.ModelsAgreed),
		strconv.FormatBool(r.Decision.FallbackUsed),
		r.Decision.Reasoning,
		r.PrevHash,
	}, "|")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// #endregion canonical

// #region persisted-form
// logHeader is written once when the destination file is new or empty.
const logHeader = "timestamp,decision_id,status,final_value,confidence,models_agreed,fallback_used,reasoning,symbol,strategy,operator,hash,prev_hash"

// logLine renders the persisted form of the record: one delimited line,
// reasoning quoted, timestamp as human-readable UTC.
func (r Record) logLine() string {
	ts := time.Unix(0, r.Decision.TimestampNs).UTC().Format("2006-01-02 15:04:05")
	return fmt.Sprintf("%s,%d,%s,%.6f,%.4f,%d,%t,%q,%s,%s,%s,%s,%s",
		ts, r.DecisionID, r.Decision.Status,
		r.Decision.FinalValue, r.Decision.Confidence, r.Decision.ModelsAgreed,
		r.Decision.FallbackUsed, r.Decision.Reasoning,
		r.Context.Symbol, r.Context.Strategy, r.Context.Operator,
		r.Hash, r.PrevHash)
}

// #endregion persisted-form
