package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ballast-systems/ballast/internal/archive"
	"github.com/ballast-systems/ballast/internal/audit"
	"github.com/ballast-systems/ballast/internal/engine"
	"github.com/ballast-systems/ballast/internal/metrics"
)

// persistQueueDepth bounds the audit writer queue. A full queue backpressures
// decision production rather than dropping records.
const persistQueueDepth = 256

// notifyBufferDepth bounds the live decision feed. Slow consumers miss
// decisions; they never delay them.
const notifyBufferDepth = 64

// ErrStopped is returned by Decide once the runner has shut down.
var ErrStopped = errors.New("pipeline: runner stopped")

// #region types

type decideRequest struct {
	signals  []engine.ModelSignal
	auditCtx audit.Context
	reply    chan engine.Decision
}

type persistJob struct {
	decision engine.Decision
	auditCtx audit.Context
	signals  []engine.ModelSignal
}

// Runner owns one engine and serializes all decision production through a
// single loop, so the engine needs no internal locking. Audit persistence is
// offloaded to a dedicated writer goroutine behind a bounded queue; the hash
// chain keeps strict ordering because that writer is the logger's only caller.
type Runner struct {
	eng       *engine.Engine
	collector *metrics.Collector
	store     *archive.Store // optional, nil disables archiving
	runID     string

	requests chan decideRequest
	persist  chan persistJob
	notify   chan engine.Decision

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.Mutex // guards logger and persistFailures
	logger          *audit.Logger
	persistFailures uint64
}

// #endregion types

// #region constructor

// NewRunner wires an engine, audit logger, metrics collector, and optional
// archive store into a runner. Call Start before Decide.
func NewRunner(eng *engine.Engine, logger *audit.Logger, collector *metrics.Collector, store *archive.Store) *Runner {
	return &Runner{
		eng:       eng,
		logger:    logger,
		collector: collector,
		store:     store,
		runID:     uuid.New().String(),
		requests:  make(chan decideRequest),
		persist:   make(chan persistJob, persistQueueDepth),
		notify:    make(chan engine.Decision, notifyBufferDepth),
	}
}

// #endregion constructor

// #region lifecycle

// Start launches the decision loop and the audit writer. The runner stops
// when ctx is canceled or Stop is called.
func (r *Runner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(2)
	go r.decisionLoop()
	go r.writerLoop()
}

// Stop shuts the runner down and waits for the writer to drain its queue.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
	close(r.notify)
}

func (r *Runner) decisionLoop() {
	defer r.wg.Done()
	// Closing persist lets the writer drain everything already enqueued.
	defer close(r.persist)

	for {
		select {
		case <-r.ctx.Done():
			return
		case req := <-r.requests:
			d := r.eng.Decide(req.signals)

			// Observers are read-only and never delay the decision.
			r.collector.Observe(d)
			metrics.RecordDecision(d)

			select {
			case r.notify <- d:
			default:
				// feed full, consumer misses this decision
			}

			// Blocking send: audit records are never dropped.
			r.persist <- persistJob{decision: d, auditCtx: req.auditCtx, signals: req.signals}

			req.reply <- d
		}
	}
}

func (r *Runner) writerLoop() {
	defer r.wg.Done()

	for job := range r.persist {
		r.mu.Lock()
		rec, err := r.logger.Log(job.decision, job.auditCtx)
		if err != nil {
			r.persistFailures++
		}
		r.mu.Unlock()
		if err != nil {
			log.Printf("[PIPE] audit sink failure: %v", err)
		}

		if r.store != nil {
			if err := r.store.Insert(r.runID, rec, job.signals); err != nil {
				r.mu.Lock()
				r.persistFailures++
				r.mu.Unlock()
				log.Printf("[PIPE] archive insert failure: %v", err)
			}
		}
	}
}

// #endregion lifecycle

// #region decide

// Decide submits signals for a decision and waits for the result. Safe for
// concurrent callers; requests are serialized by the decision loop.
func (r *Runner) Decide(ctx context.Context, signals []engine.ModelSignal, auditCtx audit.Context) (engine.Decision, error) {
	if err := ctx.Err(); err != nil {
		return engine.Decision{}, err
	}

	req := decideRequest{
		signals:  signals,
		auditCtx: auditCtx,
		reply:    make(chan engine.Decision, 1),
	}

	select {
	case r.requests <- req:
	case <-ctx.Done():
		return engine.Decision{}, ctx.Err()
	case <-r.ctx.Done():
		return engine.Decision{}, ErrStopped
	}

	select {
	case d := <-req.reply:
		return d, nil
	case <-ctx.Done():
		return engine.Decision{}, ctx.Err()
	}
}

// #endregion decide

// #region accessors

// Notify exposes the live decision feed. The channel closes on Stop.
func (r *Runner) Notify() <-chan engine.Decision {
	return r.notify
}

// RunID identifies this runner's archive rows.
func (r *Runner) RunID() string {
	return r.runID
}

// Trail returns a copy of the audit chain so far.
func (r *Runner) Trail() []audit.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger.Trail()
}

// Verify re-checks the audit chain's integrity.
func (r *Runner) Verify() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger.VerifyIntegrity()
}

// Report aggregates the audit trail over [startNs, endNs].
func (r *Runner) Report(startNs, endNs int64) audit.Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logger.Report(startNs, endNs)
}

// Snapshot returns the current metrics rollup.
func (r *Runner) Snapshot() metrics.Snapshot {
	return r.collector.GetSnapshot()
}

// Healthy applies the collector's health predicate.
func (r *Runner) Healthy(maxFallbackRate float64) bool {
	return r.collector.IsHealthy(maxFallbackRate)
}

// PersistFailures counts audit or archive writes that failed.
func (r *Runner) PersistFailures() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistFailures
}

// #endregion accessors
