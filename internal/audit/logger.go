package audit

import (
	"fmt"
	"os"

	"github.com/ballast-systems/ballast/internal/engine"
)

// #region logger
// Logger maintains the hash-chained audit trail: an in-memory record sequence
// plus an append-only text sink. The chain always advances in memory even
// when the sink fails, and the failure is returned to the caller rather than
// swallowed. Not safe for concurrent use; callers sharing one logger across
// producers must serialize Log calls, or decision ids and prev hashes would
// race and corrupt the chain.
type Logger struct {
	digest   Digest
	file     *os.File
	trail    []Record
	lastHash string
	nextID   uint64
	sinkErrs uint64
}

// Open creates a logger appending to path. The header line is written only
// when the file is new or empty. A nil digest selects fnv64.
func Open(path string, digest Digest) (*Logger, error) {
	if digest == nil {
		digest = FNV64()
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat audit log: %w", err)
	}
	if info.Size() == 0 {
		if _, err := f.WriteString(logHeader + "\n"); err != nil {
			f.Close()
			return nil, fmt.Errorf("write audit header: %w", err)
		}
	}
	return &Logger{digest: digest, file: f, lastHash: digest.Genesis(), nextID: 1}, nil
}

// NewMemory creates a logger with no persistence sink, for tests and
// in-process consumers that only need the verifiable trail.
func NewMemory(digest Digest) *Logger {
	if digest == nil {
		digest = FNV64()
	}
	return &Logger{digest: digest, lastHash: digest.Genesis(), nextID: 1}
}

// Log chains one decision and persists it, flushing before return so a crash
// immediately after a successful call cannot lose the record. The in-memory
// chain always advances; a non-nil error means this record did not reach the
// sink and the caller decides whether that halts production.
func (l *Logger) Log(d engine.Decision, ctx Context) (Record, error) {
	rec := Record{
		DecisionID: l.nextID,
		Decision:   d,
		Context:    ctx,
		PrevHash:   l.lastHash,
	}
	rec.Hash = l.digest.Sum(rec.content())

	l.trail = append(l.trail, rec)
	l.lastHash = rec.Hash
	l.nextID++

	if l.file == nil {
		return rec, nil
	}
	if _, err := l.file.WriteString(rec.logLine() + "\n"); err != nil {
		l.sinkErrs++
		return rec, fmt.Errorf("append audit record %d: %w", rec.DecisionID, err)
	}
	if err := l.file.Sync(); err != nil {
		l.sinkErrs++
		return rec, fmt.Errorf("flush audit record %d: %w", rec.DecisionID, err)
	}
	return rec, nil
}

// VerifyIntegrity replays the trail from the genesis sentinel, checking both
// the prev-hash linkage and each record's recomputed content digest. Returns
// false at the first broken link without scanning further.
func (l *Logger) VerifyIntegrity() bool {
	return VerifyRecords(l.trail, l.digest)
}

// VerifyRecords checks an arbitrary record sequence against the chain rules.
// Useful for re-verifying records read back from an archive.
func VerifyRecords(records []Record, digest Digest) bool {
	if digest == nil {
		digest = FNV64()
	}
	prev := digest.Genesis()
	for _, rec := range records {
		if rec.PrevHash != prev {
			return false
		}
		if digest.Sum(rec.content()) != rec.Hash {
			return false
		}
		prev = rec.Hash
	}
	return true
}

// Trail returns a copy of the in-memory record sequence.
func (l *Logger) Trail() []Record {
	out := make([]Record, len(l.trail))
	copy(out, l.trail)
	return out
}

// Len reports the number of chained records.
func (l *Logger) Len() int { return len(l.trail) }

// LastHash returns the most recent chain digest, or the genesis sentinel for
// an empty trail.
func (l *Logger) LastHash() string { return l.lastHash }

// Digest returns the chain digest policy in effect.
func (l *Logger) Digest() Digest { return l.digest }

// SinkFailures reports how many records failed to reach the sink.
func (l *Logger) SinkFailures() uint64 { return l.sinkErrs }

// Close closes the sink, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// #endregion logger
