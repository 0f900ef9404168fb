package archive

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ballast-systems/ballast/internal/audit"
	"github.com/ballast-systems/ballast/internal/engine"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	run_id        TEXT NOT NULL,
	decision_id   INTEGER NOT NULL,
	timestamp_ns  INTEGER NOT NULL,
	status        TEXT NOT NULL,
	final_value   REAL NOT NULL,
	confidence    REAL NOT NULL,
	models_agreed INTEGER NOT NULL,
	fallback_used INTEGER NOT NULL,
	contributing  TEXT,
	reasoning     TEXT,
	symbol        TEXT,
	strategy      TEXT,
	operator      TEXT,
	hash          TEXT NOT NULL,
	prev_hash     TEXT NOT NULL,
	signals_json  TEXT,
	created_at    TEXT NOT NULL,
	PRIMARY KEY (run_id, decision_id)
);

CREATE INDEX IF NOT EXISTS idx_audit_records_ts ON audit_records(timestamp_ns);
`
// #endregion schema

// #region types
// Row is one archived decision: the audit record plus the raw input signals
// that produced it, keyed by the run that emitted it.
type Row struct {
	RunID     string
	Record    audit.Record
	Signals   []engine.ModelSignal
	CreatedAt time.Time
}

// RunInfo summarizes one run's footprint in the archive.
type RunInfo struct {
	RunID   string
	Records int
	FirstNs int64
	LastNs  int64
}
// #endregion types

// #region store-struct
// Store mirrors audit records into SQLite for offline inspection and replay.
// The audit log file remains the primary chain of custody; the archive adds
// queryability and input provenance.
type Store struct {
	db *sql.DB
}
// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}
// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
// #endregion close

// #region db-accessor
// DB returns the underlying *sql.DB for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}
// #endregion db-accessor

// #region insert
// Insert archives one audit record together with the raw signals that fed it.
func (s *Store) Insert(runID string, rec audit.Record, signals []engine.ModelSignal) error {
	signalsJSON, err := json.Marshal(signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	contribJSON, err := json.Marshal(rec.Decision.ContributingModels)
	if err != nil {
		return fmt.Errorf("marshal contributing models: %w", err)
	}

	fallback := 0
	if rec.Decision.FallbackUsed {
		fallback = 1
	}

	_, err = s.db.Exec(
		`INSERT INTO audit_records (
			run_id, decision_id, timestamp_ns, status, final_value, confidence,
			models_agreed, fallback_used, contributing, reasoning,
			symbol, strategy, operator, hash, prev_hash, signals_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, rec.DecisionID, rec.Decision.TimestampNs, rec.Decision.Status.String(),
		rec.Decision.FinalValue, rec.Decision.Confidence, rec.Decision.ModelsAgreed,
		fallback, string(contribJSON), rec.Decision.Reasoning,
		rec.Context.Symbol, rec.Context.Strategy, rec.Context.Operator,
		rec.Hash, rec.PrevHash, string(signalsJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record %d: %w", rec.DecisionID, err)
	}
	return nil
}
// #endregion insert

// #region queries
const selectCols = `run_id, decision_id, timestamp_ns, status, final_value, confidence,
	models_agreed, fallback_used, contributing, reasoning,
	symbol, strategy, operator, hash, prev_hash, signals_json, created_at`

// ListRun returns a run's records in chain order.
func (s *Store) ListRun(runID string) ([]Row, error) {
	rows, err := s.db.Query(
		`SELECT `+selectCols+` FROM audit_records WHERE run_id = ? ORDER BY decision_id ASC`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run %s: %w", runID, err)
	}
	return scanRows(rows)
}

// ListRange returns records whose timestamps fall inside [startNs, endNs],
// oldest first, capped at limit when limit > 0.
func (s *Store) ListRange(startNs, endNs int64, limit int) ([]Row, error) {
	q := `SELECT ` + selectCols + ` FROM audit_records
		WHERE timestamp_ns >= ? AND timestamp_ns <= ?
		ORDER BY timestamp_ns ASC, decision_id ASC`
	args := []interface{}{startNs, endNs}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list range: %w", err)
	}
	return scanRows(rows)
}

// LastN returns the most recent n records, newest first.
func (s *Store) LastN(n int) ([]Row, error) {
	rows, err := s.db.Query(
		`SELECT `+selectCols+` FROM audit_records
		 ORDER BY timestamp_ns DESC, decision_id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("last %d: %w", n, err)
	}
	return scanRows(rows)
}

// Runs summarizes every run in the archive, most recent first.
func (s *Store) Runs() ([]RunInfo, error) {
	rows, err := s.db.Query(
		`SELECT run_id, COUNT(*), MIN(timestamp_ns), MAX(timestamp_ns)
		 FROM audit_records GROUP BY run_id ORDER BY MAX(timestamp_ns) DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var infos []RunInfo
	for rows.Next() {
		var info RunInfo
		if err := rows.Scan(&info.RunID, &info.Records, &info.FirstNs, &info.LastNs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, rows.Err()
}
// #endregion queries

// #region scan
func scanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var (
			r           Row
			statusStr   string
			fallback    int
			contribJSON sql.NullString
			signalsJSON sql.NullString
			createdStr  string
		)
		err := rows.Scan(
			&r.RunID, &r.Record.DecisionID, &r.Record.Decision.TimestampNs,
			&statusStr, &r.Record.Decision.FinalValue, &r.Record.Decision.Confidence,
			&r.Record.Decision.ModelsAgreed, &fallback, &contribJSON,
			&r.Record.Decision.Reasoning,
			&r.Record.Context.Symbol, &r.Record.Context.Strategy, &r.Record.Context.Operator,
			&r.Record.Hash, &r.Record.PrevHash, &signalsJSON, &createdStr,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		status, err := engine.ParseStatus(statusStr)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r.Record.DecisionID, err)
		}
		r.Record.Decision.Status = status
		r.Record.Decision.FallbackUsed = fallback != 0

		if contribJSON.Valid && contribJSON.String != "" {
			if err := json.Unmarshal([]byte(contribJSON.String), &r.Record.Decision.ContributingModels); err != nil {
				return nil, fmt.Errorf("unmarshal contributing models: %w", err)
			}
		}
		if signalsJSON.Valid && signalsJSON.String != "" {
			if err := json.Unmarshal([]byte(signalsJSON.String), &r.Signals); err != nil {
				return nil, fmt.Errorf("unmarshal signals: %w", err)
			}
		}
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, r)
	}
	return out, rows.Err()
}
// #endregion scan
