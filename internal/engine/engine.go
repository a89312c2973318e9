// Package engine implements the hybrid search core: the aligned vector index
// and metadata table, the startup load state machine, and the add and search
// operations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soyamu/soyamu/internal/config"
	"github.com/soyamu/soyamu/internal/embedding"
	"github.com/soyamu/soyamu/internal/models"
	"github.com/soyamu/soyamu/internal/normalize"
	"github.com/soyamu/soyamu/internal/scoring"
	"github.com/soyamu/soyamu/internal/storage"
	"github.com/soyamu/soyamu/internal/vector"
)

// ErrNotReady is returned by Add and Search before Load has completed.
var ErrNotReady = errors.New("engine: not ready")

// State tracks startup progress. The engine serves requests only in
// StateReady; everything before that is the load walk.
type State int32

const (
	StateInit State = iota
	StateConnectingStore
	StateConnected
	StateStandalone
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnectingStore:
		return "connecting_store"
	case StateConnected:
		return "connected"
	case StateStandalone:
		return "standalone"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Engine holds the vector index and the metadata table as a positionally
// aligned pair: the item at position i owns the vector at position i. Both
// are mutated together under mu and only ever appended to.
type Engine struct {
	store     storage.Store
	snapshots *storage.SnapshotStore
	embedder  embedding.Embedder
	scorer    *scoring.Scorer
	index     vector.Index

	mu    sync.RWMutex
	items []*models.Item

	// addMu serializes adds so the embed and the double append of one item
	// cannot interleave with another's.
	addMu sync.Mutex
	// snapMu serializes snapshot writes.
	snapMu sync.Mutex

	state   atomic.Int32
	storeUp atomic.Bool

	cfg            *config.Config
	snapshotEveryN int
	retryAttempts  int
	retryDelay     time.Duration

	logger *zap.Logger
	wg     sync.WaitGroup
}

// New creates an engine around an already-selected embedding provider.
// store may be nil, in which case the engine always runs standalone.
func New(store storage.Store, snapshots *storage.SnapshotStore, embedder embedding.Embedder, cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	idx, err := vector.NewFlatIndex(embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("create vector index: %w", err)
	}
	everyN := cfg.Snapshot.EveryNAdds
	if everyN <= 0 {
		everyN = 10
	}
	attempts := cfg.Store.RetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := time.Duration(cfg.Store.RetryDelaySeconds) * time.Second
	if delay <= 0 {
		delay = 2 * time.Second
	}
	return &Engine{
		store:          store,
		snapshots:      snapshots,
		embedder:       embedder,
		scorer:         scoring.NewScorer(&cfg.Search),
		index:          idx,
		cfg:            cfg,
		snapshotEveryN: everyN,
		retryAttempts:  attempts,
		retryDelay:     delay,
		logger:         logger,
	}, nil
}

// Load walks the startup state machine: connect to the store (with retry),
// rebuild the index from whichever source is available, snapshot, and go
// ready. Standalone operation after a store outage is normal; the only way
// Load fails is a context cancellation or an index rebuild error.
func (e *Engine) Load(ctx context.Context) error {
	e.setState(StateConnectingStore)
	connected, err := e.connectStore(ctx)
	if err != nil {
		return err
	}
	e.storeUp.Store(connected)
	if connected {
		e.setState(StateConnected)
	} else {
		e.setState(StateStandalone)
		e.logger.Warn("store unavailable, running standalone from snapshot")
	}

	e.setState(StateLoading)
	if connected {
		if err := e.loadFromStore(ctx); err != nil {
			return err
		}
	} else {
		e.loadFromSnapshot()
	}

	if err := e.WriteSnapshot(); err != nil {
		e.logger.Warn("startup snapshot failed", zap.Error(err))
	}

	e.setState(StateReady)
	e.logger.Info("engine ready",
		zap.Int("items", e.Size()),
		zap.String("provider", e.embedder.Name()),
		zap.Bool("store_connected", connected))
	return nil
}

func (e *Engine) connectStore(ctx context.Context) (bool, error) {
	if e.store == nil {
		return false, nil
	}
	for attempt := 1; attempt <= e.retryAttempts; attempt++ {
		err := e.store.Ping(ctx)
		if err == nil {
			return true, nil
		}
		e.logger.Warn("store ping failed",
			zap.Int("attempt", attempt), zap.Int("max_attempts", e.retryAttempts), zap.Error(err))
		if attempt == e.retryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(e.retryDelay):
		}
	}
	return false, nil
}

// loadFromStore rebuilds the index from the authoritative catalog, oldest
// first. Descriptions are embedded in one batch; when the batch fails the
// rebuild retries item by item and skips the bad records with a count, so
// one unembeddable description cannot block startup.
func (e *Engine) loadFromStore(ctx context.Context) error {
	items, err := e.store.FetchAllItems(ctx)
	if err != nil {
		return fmt.Errorf("fetch items: %w", err)
	}
	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = normalize.Normalize(item.Description)
	}

	vectors, batchErr := e.embedder.EmbedBatch(ctx, texts)
	if batchErr == nil {
		for i, item := range items {
			if err := e.appendIndexed(ctx, item, vectors[i]); err != nil {
				return err
			}
		}
		e.logger.Info("catalog loaded from store", zap.Int("items", e.Size()))
		return nil
	}
	e.logger.Warn("batch embed failed, retrying per item", zap.Error(batchErr))

	skipped := 0
	for i, item := range items {
		vec, err := e.embedder.Embed(ctx, texts[i])
		if err != nil {
			skipped++
			continue
		}
		if err := e.appendIndexed(ctx, item, vec); err != nil {
			return err
		}
	}
	if skipped > 0 {
		e.logger.Warn("items skipped during rebuild", zap.Int("skipped", skipped))
	}
	e.logger.Info("catalog loaded from store", zap.Int("items", e.Size()))
	return nil
}

// appendIndexed adds one item and its vector under the lock, keeping the
// catalog and the index positionally aligned.
func (e *Engine) appendIndexed(ctx context.Context, item *models.Item, vec []float32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.index.Add(ctx, vec); err != nil {
		return fmt.Errorf("index item %s: %w", item.ID, err)
	}
	e.items = append(e.items, item)
	return nil
}

// loadFromSnapshot restores the index pair from disk. A corrupt snapshot is
// discarded and the engine starts empty; standalone mode must come up even
// with nothing to serve.
func (e *Engine) loadFromSnapshot() {
	vectors, items, err := e.snapshots.Load(e.embedder.Name(), e.embedder.Dimensions())
	if err != nil {
		e.logger.Warn("snapshot rejected, starting empty", zap.Error(err))
		if derr := e.snapshots.Discard(); derr != nil {
			e.logger.Warn("snapshot discard failed", zap.Error(derr))
		}
		return
	}
	if len(vectors) == 0 {
		e.logger.Info("no snapshot found, starting empty")
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.index.Add(context.Background(), vectors...); err != nil {
		e.logger.Warn("snapshot vectors rejected, starting empty", zap.Error(err))
		e.index.Clear()
		return
	}
	e.items = items
	e.logger.Info("catalog loaded from snapshot", zap.Int("items", len(items)))
}

// Add embeds and indexes a found item. The store write is asynchronous and
// best effort: a store outage degrades durability, never availability. Every
// Nth add also triggers an asynchronous snapshot.
func (e *Engine) Add(ctx context.Context, input *models.ItemInput) (*models.Item, error) {
	if e.State() != StateReady {
		return nil, ErrNotReady
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	item := &models.Item{
		ID:          input.ID,
		Description: input.Description,
		Category:    input.Category,
		CreatedAt:   time.Now().UTC(),
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}

	e.addMu.Lock()
	defer e.addMu.Unlock()

	vec, err := e.embedder.Embed(ctx, normalize.Normalize(item.Description))
	if err != nil {
		return nil, fmt.Errorf("embed item: %w", err)
	}

	e.mu.Lock()
	if err := e.index.Add(ctx, vec); err != nil {
		e.mu.Unlock()
		return nil, fmt.Errorf("index item: %w", err)
	}
	e.items = append(e.items, item)
	size := len(e.items)
	e.mu.Unlock()

	if e.store != nil && e.storeUp.Load() {
		e.wg.Add(1)
		go e.persistItem(item, vec)
	}
	if size%e.snapshotEveryN == 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			if err := e.WriteSnapshot(); err != nil {
				e.logger.Warn("periodic snapshot failed", zap.Error(err))
			}
		}()
	}
	return item, nil
}

func (e *Engine) persistItem(item *models.Item, vec []float32) {
	defer e.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.store.InsertItem(ctx, item, vec); err != nil {
		e.logger.Warn("store write failed, item served from memory only",
			zap.String("item_id", item.ID), zap.Error(err))
	}
}

// Search embeds the query, retrieves candidates from the vector index, and
// ranks them with the hybrid scorer. When the query carries a category, only
// items of that category are returned and each receives the category boost.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	if e.State() != StateReady {
		return nil, ErrNotReady
	}
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Limit <= 0 {
		query.Limit = e.cfg.Search.DefaultLimit
	}
	if maxLimit := e.cfg.Search.MaxLimit; maxLimit > 0 && query.Limit > maxLimit {
		query.Limit = maxLimit
	}

	start := time.Now()
	resp := &models.SearchResponse{
		Matches: []*models.MatchResult{},
		Query:   query.Text,
	}
	if e.Size() == 0 {
		resp.QueryTime = time.Since(start).Milliseconds()
		return resp, nil
	}

	queryVec, err := e.embedder.Embed(ctx, normalize.Normalize(query.Text))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryTokens := normalize.Tokens(query.Text)

	k := query.Limit
	if e.cfg.Search.TopKCandidates > k {
		k = e.cfg.Search.TopKCandidates
	}

	e.mu.RLock()
	hits, err := e.index.Search(ctx, queryVec, k)
	if err != nil {
		e.mu.RUnlock()
		return nil, fmt.Errorf("vector search: %w", err)
	}
	matches := make([]*models.MatchResult, 0, len(hits))
	for _, hit := range hits {
		item := e.items[hit.Position]
		categoryMatch := query.Category != "" && strings.EqualFold(item.Category, query.Category)
		if query.Category != "" && !categoryMatch {
			continue
		}
		breakdown := e.scorer.Breakdown(hit.Similarity, queryTokens, normalize.Tokens(item.Description), categoryMatch)
		matches = append(matches, &models.MatchResult{
			Item:                 item,
			RawSimilarity:        hit.Similarity,
			VectorScorePct:       breakdown.VectorPct,
			KeywordScorePct:      breakdown.KeywordPct,
			CategoryBoostApplied: breakdown.CategoryMatch,
			FinalScorePct:        breakdown.FinalPct,
		})
	}
	e.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].FinalScorePct > matches[j].FinalScorePct
	})
	if len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}

	resp.Matches = matches
	resp.TotalMatches = len(matches)
	resp.QueryTime = time.Since(start).Milliseconds()
	return resp, nil
}

// WriteSnapshot persists the current index pair to disk. Writers are
// serialized; each write sees a consistent aligned copy.
func (e *Engine) WriteSnapshot() error {
	if e.snapshots == nil {
		return nil
	}
	e.snapMu.Lock()
	defer e.snapMu.Unlock()

	e.mu.RLock()
	vectors := e.index.Snapshot()
	items := make([]*models.Item, len(e.items))
	copy(items, e.items)
	e.mu.RUnlock()

	return e.snapshots.Write(e.embedder.Name(), e.embedder.Dimensions(), vectors, items)
}

// Flush waits for outstanding asynchronous store writes and snapshots.
func (e *Engine) Flush() {
	e.wg.Wait()
}

// Size returns the number of indexed items.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.items)
}

// State returns the current startup state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
	e.logger.Debug("engine state", zap.String("state", s.String()))
}

// ProviderName reports the active embedding provider.
func (e *Engine) ProviderName() string {
	return e.embedder.Name()
}

// Dimensions reports the embedding dimension.
func (e *Engine) Dimensions() int {
	return e.embedder.Dimensions()
}

// StoreConnected reports whether the authoritative store was reachable at
// load time.
func (e *Engine) StoreConnected() bool {
	return e.storeUp.Load()
}

// Close releases the index and the embedding provider.
func (e *Engine) Close() error {
	e.Flush()
	if err := e.index.Close(); err != nil {
		return err
	}
	return e.embedder.Close()
}
