package pipeline

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/budget"
	"github.com/ppiankov/leadmaster/internal/cache"
	"github.com/ppiankov/leadmaster/internal/geo"
	"github.com/ppiankov/leadmaster/internal/llm"
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/score"
	"github.com/ppiankov/leadmaster/internal/source"
	"github.com/ppiankov/leadmaster/internal/store"
	"github.com/ppiankov/leadmaster/internal/util"
	"github.com/ppiankov/leadmaster/internal/worker"
)

// memoryTier is how long the layered backend keeps entries in process
const memoryTier = 15 * time.Minute

// NewCacheBackend builds the fetch-cache backend named in the config. The
// sql backend shares the relational store; redis failing to connect is an
// error rather than a silent downgrade.
func NewCacheBackend(cfg model.CacheConfig, st *store.Store) (cache.Cache, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "none":
		return nil, nil
	case "memory":
		return cache.NewMemoryCache(cfg.TTL, 10*time.Minute), nil
	case "disk":
		return cache.NewDiskCache(filepath.Clean(cfg.Dir), cfg.TTL), nil
	case "redis":
		rc, err := cache.NewRedisCache(cache.RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB, TTL: cfg.TTL})
		if err != nil {
			return nil, eris.Wrap(err, "pipeline: redis cache")
		}
		return rc, nil
	case "sql":
		if st == nil {
			return nil, eris.New("pipeline: sql cache needs a store")
		}
		return store.NewSQLCache(st), nil
	case "layered":
		var durable cache.Cache
		if st != nil {
			durable = store.NewSQLCache(st)
		} else {
			durable = cache.NewDiskCache(filepath.Clean(cfg.Dir), cfg.TTL)
		}
		return cache.NewLayeredCache(memoryTier, durable), nil
	default:
		return nil, eris.Errorf("pipeline: unknown cache backend %q (memory, disk, redis, sql, layered)", cfg.Backend)
	}
}

// Build wires a pipeline from configuration: source chain, fetch cache,
// provider-backed engine under the budget governor, cached geocoder and
// the store.
func Build(cfg *model.Config, st *store.Store) (*Pipeline, error) {
	limiter := worker.NewLimiter(cfg.Search.RequestsPerSecond, 2)
	if err := limiter.SetURLRate(cfg.Geo.BaseURL, 1, 1); err != nil {
		zap.L().Warn("geocoder pacing not applied", zap.Error(err))
	}

	chain, _ := source.DefaultChain(cfg, limiter)

	backend, err := NewCacheBackend(cfg.Cache, st)
	if err != nil {
		return nil, err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: llm provider")
	}
	if provider == nil {
		zap.L().Info("no llm provider configured, running on heuristics only")
	}

	governor := budget.NewGovernor(cfg.Budget.DailyCents)
	engine := llm.NewEngine(provider, governor, llm.Options{
		Costs: llm.Costs{
			Extract: cfg.Budget.ExtractCents,
			Summary: cfg.Budget.SummaryCents,
			Keyword: cfg.Budget.KeywordCents,
		},
		Keywords:     score.SeedKeywords,
		Cooldown:     cfg.Summary.Cooldown,
		Policy:       llm.SummaryPolicy(cfg.Summary.Policy),
		MaxHeadlines: cfg.Summary.MaxHeadlines,
		BatchSize:    cfg.Search.BatchSize,
	})

	geoClient := util.NewHTTPClient(cfg.Geo.Timeout, cfg.Geo.UserAgent, cfg.HTTP)
	locator := geo.NewSafeGeocoder(geo.NewNominatim(cfg.Geo.BaseURL, geoClient, limiter), cfg.Geo.CacheTTL)

	deps := Deps{
		Chain:    chain,
		Cache:    cache.NewFetchCache(backend, cfg.Cache.TTL),
		Engine:   engine,
		Governor: governor,
		Locator:  locator,
	}
	if st != nil {
		deps.Writer = st
	}

	zap.L().Debug("pipeline built",
		zap.Strings("adapters", chain.Names()),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("llm", provider != nil),
		zap.Int64("daily_cents", cfg.Budget.DailyCents))

	return New(deps, OptionsFromConfig(cfg)), nil
}
