package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ballast-systems/ballast/internal/audit"
	"github.com/ballast-systems/ballast/internal/engine"
	"github.com/ballast-systems/ballast/internal/pipeline"
)

// #region decide

type decideRequest struct {
	Signals  []engine.ModelSignal `json:"signals"`
	Symbol   string               `json:"symbol,omitempty"`
	Strategy string               `json:"strategy,omitempty"`
	Operator string               `json:"operator,omitempty"`
}

func (s *Server) postDecide(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	d, err := s.runner.Decide(r.Context(), req.Signals, audit.Context{
		Symbol:   req.Symbol,
		Strategy: req.Strategy,
		Operator: req.Operator,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrStopped) {
			http.Error(w, "decision pipeline is not running", http.StatusServiceUnavailable)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}

// #endregion decide

// #region observability

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	maxRate := s.opts.HealthyFallbackRate
	if v := r.URL.Query().Get("max_fallback_rate"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			http.Error(w, "max_fallback_rate must be a number in [0, 1]", http.StatusBadRequest)
			return
		}
		maxRate = f
	}

	snap := s.runner.Snapshot()
	status := "healthy"
	if !s.runner.Healthy(maxRate) {
		status = "degraded"
	}

	response := struct {
		Status           string    `json:"status"`
		FallbackRate     float64   `json:"fallback_rate"`
		TotalDecisions   uint64    `json:"total_decisions"`
		OverflowDetected bool      `json:"overflow_detected"`
		PersistFailures  uint64    `json:"persist_failures"`
		RunID            string    `json:"run_id"`
		Timestamp        time.Time `json:"timestamp"`
	}{
		Status:           status,
		FallbackRate:     snap.FallbackRate,
		TotalDecisions:   snap.TotalDecisions,
		OverflowDetected: snap.OverflowDetected,
		PersistFailures:  s.runner.PersistFailures(),
		RunID:            s.runner.RunID(),
		Timestamp:        time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) getMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.runner.Snapshot())
}

// #endregion observability

// #region audit

func (s *Server) getAuditRecords(w http.ResponseWriter, r *http.Request) {
	records := s.runner.Trail()

	// Apply limit, keeping the most recent records
	limitStr := r.URL.Query().Get("limit")
	limit := len(records)
	if limitStr != "" {
		if l, err := parseInt(limitStr); err == nil && l > 0 {
			limit = l
			if limit > len(records) {
				limit = len(records)
			}
		}
	}
	if limit < len(records) {
		records = records[len(records)-limit:]
	}

	response := struct {
		Records []audit.Record `json:"records"`
		Count   int            `json:"count"`
	}{
		Records: records,
		Count:   len(records),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func (s *Server) getAuditReport(w http.ResponseWriter, r *http.Request) {
	startNs := int64(0)
	endNs := time.Now().UnixNano()

	if v := r.URL.Query().Get("start_ns"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "start_ns must be an integer", http.StatusBadRequest)
			return
		}
		startNs = n
	}
	if v := r.URL.Query().Get("end_ns"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "end_ns must be an integer", http.StatusBadRequest)
			return
		}
		endNs = n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.runner.Report(startNs, endNs))
}

func (s *Server) getAuditVerify(w http.ResponseWriter, r *http.Request) {
	response := struct {
		Intact    bool      `json:"intact"`
		Records   int       `json:"records"`
		Timestamp time.Time `json:"timestamp"`
	}{
		Intact:    s.runner.Verify(),
		Records:   len(s.runner.Trail()),
		Timestamp: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// #endregion audit

func parseInt(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	return result, err
}
