// Package engine runs the per-symbol audit pipeline: anchor extraction,
// context collection, role clustering, rule evaluation, evidence assembly.
package engine

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Tanishq1030/Anchor/internal/anchorpoint"
	"github.com/Tanishq1030/Anchor/internal/cluster"
	"github.com/Tanishq1030/Anchor/internal/collector"
	"github.com/Tanishq1030/Anchor/internal/config"
	"github.com/Tanishq1030/Anchor/internal/corpus"
	"github.com/Tanishq1030/Anchor/internal/errors"
	"github.com/Tanishq1030/Anchor/internal/evidence"
	"github.com/Tanishq1030/Anchor/internal/logging"
	"github.com/Tanishq1030/Anchor/internal/rules"
)

// RunResult is the outcome of auditing a set of symbols.
type RunResult struct {
	RunID         string                 `json:"run_id"`
	StartedAt     time.Time              `json:"started_at"`
	CompletedAt   time.Time              `json:"completed_at"`
	Records       []evidence.AuditRecord `json:"records"`
	VerdictCounts map[string]int         `json:"verdict_counts"`
	FailureCount  int                    `json:"failure_count"`
}

// Engine wires the pipeline stages together.
type Engine struct {
	cfg       *config.Config
	logger    *logging.Logger
	corpus    corpus.Corpus
	extractor *anchorpoint.Extractor
	collector *collector.Collector
	clusterer *cluster.Clusterer
	assembler *evidence.Assembler
}

func New(cfg *config.Config, logger *logging.Logger, corp corpus.Corpus, embedder cluster.Embedder) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		corpus:    corp,
		extractor: anchorpoint.NewExtractor(cfg, logger),
		collector: collector.New(corp, cfg, logger),
		clusterer: cluster.New(embedder, cfg.Thresholds, logger),
		assembler: evidence.NewAssembler(cfg),
	}
}

// AuditSymbols audits every symbol with a bounded worker pool. Symbol
// pipelines are independent; per-symbol failures become failure records,
// never run aborts. Records come back sorted by qualified name so output
// never depends on scheduling.
func (e *Engine) AuditSymbols(ctx context.Context, symbols []corpus.Symbol) (*RunResult, error) {
	result := &RunResult{
		RunID:         uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		VerdictCounts: map[string]int{},
	}

	workers := e.cfg.Concurrency.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	records := make([]evidence.AuditRecord, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = e.AuditSymbol(gctx, sym)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Cancellation discards partial output entirely.
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Symbol.QualifiedName < records[j].Symbol.QualifiedName
	})

	for _, r := range records {
		if r.Verdict != "" {
			result.VerdictCounts[string(r.Verdict)]++
		}
		if r.Failure != nil && r.Verdict == "" {
			result.FailureCount++
		}
	}
	result.Records = records
	result.CompletedAt = time.Now().UTC()

	e.logger.Info("Audit run complete", map[string]interface{}{
		"run_id":   result.RunID,
		"symbols":  len(symbols),
		"verdicts": result.VerdictCounts,
		"failures": result.FailureCount,
	})
	return result, nil
}

// AuditSymbol runs the full pipeline for one symbol under the configured
// timeout. Stage results flow strictly forward; a timeout or any other
// recoverable condition downgrades to confidence_too_low, hard failures
// yield a failure record.
func (e *Engine) AuditSymbol(ctx context.Context, sym corpus.Symbol) evidence.AuditRecord {
	timeout := time.Duration(e.cfg.Concurrency.SymbolTimeoutMs) * time.Millisecond
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	record, err := e.runPipeline(ctx, sym)
	if err == nil {
		return record
	}

	if ctx.Err() == context.DeadlineExceeded {
		err = errors.New(errors.Timeout, "Symbol audit exceeded its deadline", err)
	}
	if errors.IsRecoverable(err) {
		e.logger.Debug("Downgrading symbol to confidence_too_low", map[string]interface{}{
			"symbol": sym.QualifiedName,
			"reason": err.Error(),
		})
		return e.assembler.Downgraded(sym, nil, err)
	}

	e.logger.Warn("Symbol audit failed", map[string]interface{}{
		"symbol": sym.QualifiedName,
		"error":  err.Error(),
	})
	return e.assembler.Failed(sym, err)
}

func (e *Engine) runPipeline(ctx context.Context, sym corpus.Symbol) (evidence.AuditRecord, error) {
	history, err := e.corpus.GetSymbolHistory(ctx, sym)
	if err != nil {
		return evidence.AuditRecord{}, err
	}

	log, err := e.extractor.Extract(ctx, sym, history)
	if err != nil {
		return evidence.AuditRecord{}, err
	}
	anchor := log.Current()

	contexts, err := e.collector.Collect(ctx, sym, history)
	if err != nil {
		return evidence.AuditRecord{}, err
	}

	clustered, err := e.clusterer.Cluster(ctx, anchor, contexts)
	if err != nil {
		return evidence.AuditRecord{}, err
	}

	stats, err := e.historyStats(ctx, sym, anchor, history)
	if err != nil {
		return evidence.AuditRecord{}, err
	}

	inputs, err := rules.BuildInputs(anchor, clustered, stats)
	if err != nil {
		return evidence.AuditRecord{}, err
	}

	verdict, ruleID := rules.Evaluate(inputs, e.cfg.Thresholds)
	return e.assembler.Assemble(anchor, clustered, inputs, verdict, ruleID), nil
}

// historyStats derives the temporal rule inputs. The history window is
// measured back from the newest revision, not the wall clock, so identical
// input history always yields identical stats.
func (e *Engine) historyStats(ctx context.Context, sym corpus.Symbol, anchor anchorpoint.IntentAnchor, history []corpus.Revision) (rules.HistoryStats, error) {
	stats := rules.HistoryStats{
		MeaningfulChangesInWindow: MeaningfulChanges(history, e.cfg.Thresholds.HistoryWindowYears, anchor.AnchorTimestamp),
	}

	dependents, err := e.corpus.CountDependents(ctx, sym)
	if err != nil {
		return stats, err
	}
	stats.DependentCount = dependents

	alternatives, err := e.corpus.FindDocumentedAlternatives(ctx, sym)
	if err != nil {
		return stats, err
	}
	stats.DocumentedAlternativeExists = len(alternatives) > 0
	return stats, nil
}

// MeaningfulChanges counts non-spike revisions inside the trailing window,
// excluding anything at or before the active anchor's creation.
func MeaningfulChanges(history []corpus.Revision, windowYears int, anchorTime time.Time) int {
	if len(history) == 0 {
		return 0
	}
	newest := history[len(history)-1].Timestamp
	windowStart := newest.AddDate(-windowYears, 0, 0)

	count := 0
	for _, rev := range history {
		if rev.Timestamp.Before(windowStart) {
			continue
		}
		if !rev.Timestamp.After(anchorTime) {
			continue
		}
		if anchorpoint.IsSpikeRevision(rev) {
			continue
		}
		count++
	}
	return count
}
