// Package engine holds the loaded catalog, policy and denylist and fronts
// every scoring operation for the CLI, gRPC, HTTP and MCP surfaces.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leoprotocol/leoscore/internal/alert"
	"github.com/leoprotocol/leoscore/internal/audit"
	"github.com/leoprotocol/leoscore/internal/bypass"
	"github.com/leoprotocol/leoscore/internal/catalog"
	"github.com/leoprotocol/leoscore/internal/denylist"
	"github.com/leoprotocol/leoscore/internal/logging"
	"github.com/leoprotocol/leoscore/internal/mapper"
	"github.com/leoprotocol/leoscore/internal/metrics"
	"github.com/leoprotocol/leoscore/internal/policy"
	"github.com/leoprotocol/leoscore/internal/scorer"
	"github.com/leoprotocol/leoscore/internal/store"
)

var (
	// ErrNoPatterns is returned when the pattern source holds no active
	// patterns. An empty catalog would report every subject as risk-free.
	ErrNoPatterns = errors.New("no active patterns")

	// ErrNoStore is returned by operations that need the database when none
	// is configured.
	ErrNoStore = errors.New("no database configured")
)

// Config selects the engine's sources. Empty paths fall back to defaults:
// the built-in catalog, ~/.leoscore/policy.yaml and ~/.leoscore/denylist.yaml.
// With DBPath set, patterns are read from the database instead of PatternsPath.
type Config struct {
	PatternsPath string
	PolicyPath   string
	DenylistPath string
	DBPath       string
	AuditLogPath string

	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

// snapshot is one consistent view of the engine's inputs, swapped whole.
type snapshot struct {
	catalog    *catalog.Catalog
	policy     *policy.PolicyConfig
	policyHash string
	scorer     *scorer.Scorer
	mapper     *mapper.Mapper
	bypass     *bypass.Evaluator
	dispatcher *alert.Dispatcher
}

// Engine is safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	snap     *snapshot
	// closing dispatchers replaced by reloads
	draining sync.WaitGroup

	cfg      Config
	store    *store.Store
	auditLog *audit.Log
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// New opens the configured database and audit log and loads the first snapshot.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	e := &Engine{
		cfg:     cfg,
		logger:  logging.OrNop(cfg.Logger),
		metrics: cfg.Metrics,
	}

	if cfg.DBPath != "" {
		st, err := store.Open(cfg.DBPath, store.WithLogger(e.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		e.store = st
	}

	if cfg.AuditLogPath != "" {
		l, err := audit.Open(cfg.AuditLogPath)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
		e.auditLog = l
	}

	snap, err := e.load(ctx)
	e.metrics.ObserveReload(patternCount(snap), err)
	if err != nil {
		e.Close()
		return nil, err
	}
	e.snap = snap
	return e, nil
}

func patternCount(s *snapshot) int {
	if s == nil {
		return 0
	}
	return s.catalog.Len()
}

func (e *Engine) load(ctx context.Context) (*snapshot, error) {
	cat, err := e.loadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	if cat.Len() == 0 {
		return nil, ErrNoPatterns
	}

	dl, err := denylist.Load(e.cfg.DenylistPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load denylist: %w", err)
	}

	cfg, hash, err := policy.LoadConfigWithHash(e.cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy config: %w", err)
	}

	var scorerOpts []scorer.Option
	if e.cfg.Clock != nil {
		scorerOpts = append(scorerOpts, scorer.WithClock(e.cfg.Clock))
	}
	bypassOpts := []bypass.Option{bypass.WithLogger(e.logger)}
	if e.store != nil {
		bypassOpts = append(bypassOpts, bypass.WithStats(e.store))
	}

	return &snapshot{
		catalog:    cat,
		policy:     cfg,
		policyHash: hash,
		scorer:     scorer.New(cat, cfg.Scoring, scorerOpts...),
		mapper:     mapper.New(cat, cfg.Mapping),
		bypass:     bypass.New(cfg.Bypass, dl, bypassOpts...),
		dispatcher: alert.NewDispatcher(cfg.Alerts, e.logger),
	}, nil
}

func (e *Engine) loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	if e.store == nil {
		cat, err := catalog.LoadFile(e.cfg.PatternsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load patterns: %w", err)
		}
		return cat, nil
	}

	patterns, err := e.store.LoadPatterns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}
	cat, err := catalog.Load(patterns)
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns from database: %w", err)
	}
	return cat, nil
}

// Reload rebuilds the snapshot from its sources and swaps it in. On error
// the previous snapshot stays active.
func (e *Engine) Reload(ctx context.Context) error {
	snap, err := e.load(ctx)
	e.metrics.ObserveReload(patternCount(snap), err)
	if err != nil {
		return err
	}

	e.mu.Lock()
	old := e.snap
	e.snap = snap
	e.mu.Unlock()
	if old != nil && old.dispatcher != nil {
		e.draining.Add(1)
		go func() {
			defer e.draining.Done()
			old.dispatcher.Close()
		}()
	}

	e.logger.Info("configuration reloaded",
		zap.Int("patterns", snap.catalog.Len()),
		zap.String("policy_hash", snap.policyHash),
		zap.String("catalog_hash", snap.catalog.Hash()))
	return nil
}

func (e *Engine) current() *snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// Close releases the database and audit log and waits for pending alerts.
func (e *Engine) Close() error {
	var errs []error
	if snap := e.current(); snap != nil && snap.dispatcher != nil {
		snap.dispatcher.Close()
	}
	e.draining.Wait()
	if e.auditLog != nil {
		errs = append(errs, e.auditLog.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	return errors.Join(errs...)
}

// Store returns the database, or nil when none is configured.
func (e *Engine) Store() *store.Store {
	return e.store
}

// Metrics returns the collectors the engine reports to, possibly nil.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// WatchPaths lists the existing-or-default files whose change should
// trigger a Reload.
func (e *Engine) WatchPaths() []string {
	var paths []string
	for _, p := range []string{
		e.cfg.PatternsPath,
		orDefault(e.cfg.PolicyPath, "policy.yaml"),
		orDefault(e.cfg.DenylistPath, "denylist.yaml"),
	} {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func orDefault(path, name string) string {
	if path != "" {
		return path
	}
	return policy.DefaultPath(name)
}

// PolicyHash returns the hash of the active policy file.
func (e *Engine) PolicyHash() string {
	return e.current().policyHash
}

// CatalogHash returns the hash of the active pattern set.
func (e *Engine) CatalogHash() string {
	return e.current().catalog.Hash()
}

// Policy returns the active policy configuration.
func (e *Engine) Policy() policy.PolicyConfig {
	return *e.current().policy
}
