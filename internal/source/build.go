package source

import (
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/util"
	"github.com/ppiankov/leadmaster/internal/worker"
)

// DefaultChain builds NewsAPI -> Google News -> GDELT from configuration.
// NewsAPI is left out when no key is configured.
func DefaultChain(cfg *model.Config, limiter *worker.Limiter) (*Chain, *GoogleNews) {
	client := util.NewHTTPClient(cfg.Search.Timeout, cfg.Search.UserAgent, cfg.HTTP)

	feeds := NewGoogleNews(cfg.Search.GoogleNewsURL, client, limiter)
	adapters := []Adapter{}
	if cfg.Search.NewsAPIKey != "" {
		adapters = append(adapters, NewNewsAPI(cfg.Search.NewsAPIURL, cfg.Search.NewsAPIKey, client, limiter))
	}
	adapters = append(adapters, feeds, NewGDELT(cfg.Search.GDELTURL, client, limiter))

	return NewChain(adapters...), feeds
}
