// Package orchestrator sequences one comparison run through its stages:
// cache check, product resolution, parallel data fetch, pure computation,
// and a fire-and-forget cache write. Stage timeouts come from config; a
// stage deadline maps to the single user-facing upstream-timeout error.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagepulse/pagepulse/internal/cache"
	"github.com/pagepulse/pagepulse/internal/config"
	"github.com/pagepulse/pagepulse/internal/engine"
	"github.com/pagepulse/pagepulse/internal/errs"
	"github.com/pagepulse/pagepulse/internal/matcher"
	"github.com/pagepulse/pagepulse/internal/metrics"
	"github.com/pagepulse/pagepulse/internal/models"
	"github.com/pagepulse/pagepulse/internal/storage"
)

// Gateway is the slice of the upstream client the pipeline consumes.
type Gateway interface {
	QuerySessions(ctx context.Context, creds *models.ShopCredentials, paths []string, dateRange models.DateRange) (map[string]matcher.RowMatch, error)
	FetchOrders(ctx context.Context, creds *models.ShopCredentials, dateRange models.DateRange) ([]models.Order, error)
	ResolveProducts(ctx context.Context, creds *models.ShopCredentials, pages []models.PageRequest) (map[string]models.Product, error)
}

// ResultStore is the cache surface the pipeline consumes.
type ResultStore interface {
	Get(ctx context.Context, shop, key string) *models.ComparisonResult
	Set(ctx context.Context, shop, key string, result *models.ComparisonResult)
	InvalidateAll(ctx context.Context, shop string)
}

// Request is one comparison run as received from the HTTP layer.
type Request struct {
	URLs      []string
	DateRange models.DateRange
	TagFilter *models.TagFilter
	Strategy  string
	Refresh   bool
}

// Pipeline runs comparison requests. Safe for concurrent use.
type Pipeline struct {
	cfg     config.PipelineConfig
	gateway Gateway
	cache   ResultStore
	history storage.RunHistory
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewPipeline assembles a pipeline from its dependencies. history may be a
// NopRunHistory when no audit sink is configured.
func NewPipeline(cfg config.PipelineConfig, gw Gateway, store ResultStore, history storage.RunHistory, logger *zap.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		gateway: gw,
		cache:   store,
		history: history,
		logger:  logger,
		metrics: m,
	}
}

// Run executes one comparison. The result lists one PageMetrics per requested
// URL, in request order. Identical requests within the cache TTL return the
// identical cached result.
func (p *Pipeline) Run(ctx context.Context, creds *models.ShopCredentials, req Request) (*models.ComparisonResult, error) {
	if err := p.validate(req); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	start := time.Now()
	logger := p.logger.With(zap.String("run_id", runID), zap.String("shop", creds.Shop))

	strategy := engine.StrategyByName(req.Strategy)
	key := cache.Key(req.URLs, req.DateRange, req.TagFilter, strategy.Name())

	if req.Refresh {
		p.cache.InvalidateAll(ctx, creds.Shop)
	} else {
		checkCtx, cancel := context.WithTimeout(ctx, p.cfg.CacheCheckTimeout)
		cached := p.cache.Get(checkCtx, creds.Shop, key)
		cancel()
		if cached != nil {
			logger.Info("cache hit", zap.Duration("elapsed", time.Since(start)))
			p.record(runID, creds.Shop, req, strategy.Name(), "ok", true, time.Since(start))
			return cached, nil
		}
	}

	pages := make([]models.PageRequest, 0, len(req.URLs))
	paths := make([]string, 0, len(req.URLs))
	for _, raw := range req.URLs {
		page := matcher.NewPageRequest(raw)
		pages = append(pages, page)
		paths = append(paths, page.Path)
	}

	resolveCtx, cancelResolve := context.WithTimeout(ctx, p.cfg.ResolveTimeout)
	products, err := p.gateway.ResolveProducts(resolveCtx, creds, pages)
	cancelResolve()
	if err != nil {
		return nil, p.stageFailure(logger, runID, creds.Shop, req, strategy.Name(), "resolve", start, err)
	}

	sessions, orders, err := p.fetchData(ctx, creds, paths, req.DateRange)
	if err != nil {
		return nil, p.stageFailure(logger, runID, creds.Shop, req, strategy.Name(), "fetch", start, err)
	}

	eligible := engine.EligibleOrders(orders, req.TagFilter)

	result := &models.ComparisonResult{
		Pages:      make([]models.PageMetrics, 0, len(pages)),
		DateRange:  req.DateRange,
		TagFilter:  req.TagFilter,
		Strategy:   strategy.Name(),
		ComputedAt: time.Now().UTC(),
	}

	for _, page := range pages {
		var (
			sessionCount int64
			revenue      float64
			orderCount   int
			title        string
		)

		if match := sessions[page.Path]; match.Found {
			sessionCount = match.Row.Sessions
		}
		if product, ok := products[page.URL]; ok {
			title = product.Title
			revenue, orderCount = strategy.Attribute(eligible, product.ID)
		}

		result.Pages = append(result.Pages, engine.ComputePage(page.URL, title, sessionCount, revenue, orderCount))
	}

	// Cache write never gates the response and survives client disconnects.
	writeCtx := context.WithoutCancel(ctx)
	go p.cache.Set(writeCtx, creds.Shop, key, result)

	elapsed := time.Since(start)
	logger.Info("comparison computed",
		zap.Int("urls", len(req.URLs)),
		zap.Int("eligible_orders", len(eligible)),
		zap.Duration("elapsed", elapsed),
	)
	p.metrics.RecordComparison("ok", elapsed)
	p.record(runID, creds.Shop, req, strategy.Name(), "ok", false, elapsed)

	return result, nil
}

// fetchData issues the analytics query and the order fetch concurrently and
// waits for both. The stage deadline bounds the joint wait.
func (p *Pipeline) fetchData(ctx context.Context, creds *models.ShopCredentials, paths []string, dateRange models.DateRange) (map[string]matcher.RowMatch, []models.Order, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout)
	defer cancel()

	var (
		wg         sync.WaitGroup
		sessions   map[string]matcher.RowMatch
		sessionErr error
		orders     []models.Order
		orderErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sessions, sessionErr = p.gateway.QuerySessions(fetchCtx, creds, paths, dateRange)
	}()
	go func() {
		defer wg.Done()
		orders, orderErr = p.gateway.FetchOrders(fetchCtx, creds, dateRange)
	}()
	wg.Wait()

	if sessionErr != nil {
		return nil, nil, sessionErr
	}
	if orderErr != nil {
		return nil, nil, orderErr
	}
	return sessions, orders, nil
}

func (p *Pipeline) validate(req Request) error {
	if len(req.URLs) == 0 {
		return errs.Validation("urls", "at least one URL is required")
	}
	if err := req.DateRange.Validate(); err != nil {
		return errs.Validation("dateRange", err.Error())
	}
	return nil
}

// stageFailure maps a stage-level error to the user-facing taxonomy. A
// deadline or cancellation becomes the single upstream-timeout condition;
// anything else passes through as an unexpected error.
func (p *Pipeline) stageFailure(logger *zap.Logger, runID, shop string, req Request, strategy, stage string, start time.Time, err error) error {
	elapsed := time.Since(start)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		logger.Warn("stage timed out",
			zap.String("stage", stage),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		p.metrics.RecordStageTimeout(stage)
		p.metrics.RecordComparison("timeout", elapsed)
		p.record(runID, shop, req, strategy, "timeout", false, elapsed)
		return errs.ErrUpstreamTimeout
	}

	logger.Error("stage failed",
		zap.String("stage", stage),
		zap.Duration("elapsed", elapsed),
		zap.Error(err),
	)
	p.metrics.RecordComparison("error", elapsed)
	p.record(runID, shop, req, strategy, "error", false, elapsed)
	return err
}

// record writes the run to the audit history on a short detached context.
func (p *Pipeline) record(runID, shop string, req Request, strategy, outcome string, cacheHit bool, elapsed time.Duration) {
	if p.history == nil {
		return
	}
	rec := storage.RunRecord{
		RunID:      runID,
		Shop:       shop,
		URLCount:   len(req.URLs),
		RangeStart: req.DateRange.Start,
		RangeEnd:   req.DateRange.End,
		Strategy:   strategy,
		Outcome:    outcome,
		CacheHit:   cacheHit,
		Elapsed:    elapsed,
		RanAt:      time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.history.Record(ctx, rec); err != nil {
			p.logger.Warn("run history write failed", zap.String("run_id", runID), zap.Error(err))
		}
	}()
}
