package model

import "time"

// Config holds all Leadmaster configuration
type Config struct {
	LLM     LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Budget  BudgetConfig  `yaml:"budget" mapstructure:"budget"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Geo     GeoConfig     `yaml:"geo" mapstructure:"geo"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Summary SummaryConfig `yaml:"summary" mapstructure:"summary"`
	Notify  NotifyConfig  `yaml:"notify" mapstructure:"notify"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
}

// LLMConfig configures the text-analysis service
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (heuristics only)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// BudgetConfig sets the daily spending ceiling and per-call prices, in cents
type BudgetConfig struct {
	DailyCents   int64 `yaml:"daily_cents" mapstructure:"daily_cents"`
	ExtractCents int64 `yaml:"extract_cents" mapstructure:"extract_cents"`
	SummaryCents int64 `yaml:"summary_cents" mapstructure:"summary_cents"`
	KeywordCents int64 `yaml:"keyword_cents" mapstructure:"keyword_cents"`
}

// SearchConfig configures source adapters and the scan
type SearchConfig struct {
	MaxResults        int           `yaml:"max_results" mapstructure:"max_results"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	NewsAPIKey        string        `yaml:"newsapi_key,omitempty" mapstructure:"newsapi_key"`
	NewsAPIURL        string        `yaml:"newsapi_url" mapstructure:"newsapi_url"`
	GoogleNewsURL     string        `yaml:"google_news_url" mapstructure:"google_news_url"`
	GDELTURL          string        `yaml:"gdelt_url" mapstructure:"gdelt_url"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	MaxProspects      int           `yaml:"max_prospects" mapstructure:"max_prospects"`
	KeywordLimit      int           `yaml:"keyword_limit" mapstructure:"keyword_limit"`
	KeywordTTL        time.Duration `yaml:"keyword_ttl" mapstructure:"keyword_ttl"`
	RelevanceCutoff   float64       `yaml:"relevance_cutoff" mapstructure:"relevance_cutoff"`
	FuzzyThreshold    float64       `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
	BatchSize         int           `yaml:"batch_size" mapstructure:"batch_size"`
	Concurrency       int           `yaml:"concurrency" mapstructure:"concurrency"`
}

// CacheConfig selects the fetch-cache backend
type CacheConfig struct {
	Backend   string        `yaml:"backend" mapstructure:"backend"` // memory, disk, redis, sql, layered
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisDB   int           `yaml:"redis_db" mapstructure:"redis_db"`
}

// GeoConfig configures the geocoder
type GeoConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	CacheTTL  time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// StoreConfig configures the relational store
type StoreConfig struct {
	Path       string `yaml:"path" mapstructure:"path"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// SummaryConfig governs the throttled aggregate-summary call
type SummaryConfig struct {
	Cooldown     time.Duration `yaml:"cooldown" mapstructure:"cooldown"`
	Policy       string        `yaml:"policy" mapstructure:"policy"` // wait or skip
	MaxHeadlines int           `yaml:"max_headlines" mapstructure:"max_headlines"`
}

// NotifyConfig configures progress publishing
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url,omitempty" mapstructure:"nats_url"`
	Subject string `yaml:"subject" mapstructure:"subject"`
}

// HTTPConfig holds proxy settings shared by every outbound client
type HTTPConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			Timeout:   30,
			MaxTokens: 600,
		},
		Budget: BudgetConfig{
			DailyCents:   500,
			ExtractCents: 1,
			SummaryCents: 2,
			KeywordCents: 1,
		},
		Search: SearchConfig{
			MaxResults:        10,
			Timeout:           10 * time.Second,
			UserAgent:         "Leadmaster/0.1 (+https://github.com/ppiankov/leadmaster)",
			NewsAPIURL:        "https://newsapi.org/v2/everything",
			GoogleNewsURL:     "https://news.google.com/rss/search",
			GDELTURL:          "https://api.gdeltproject.org/api/v2/doc/doc",
			RequestsPerSecond: 2,
			MaxProspects:      50,
			KeywordLimit:      10,
			KeywordTTL:        7 * 24 * time.Hour,
			RelevanceCutoff:   0.5,
			FuzzyThreshold:    0.8,
			BatchSize:         10,
			Concurrency:       10,
		},
		Cache: CacheConfig{
			Backend:   "layered",
			TTL:       24 * time.Hour,
			Dir:       ".leadmaster-cache",
			RedisAddr: "localhost:6379",
		},
		Geo: GeoConfig{
			BaseURL:   "https://nominatim.openstreetmap.org",
			Timeout:   10 * time.Second,
			UserAgent: "Leadmaster/0.1 (+https://github.com/ppiankov/leadmaster)",
			CacheTTL:  30 * 24 * time.Hour,
		},
		Store: StoreConfig{
			Path:       "lead_master.db",
			MaxRetries: 3,
		},
		Summary: SummaryConfig{
			Cooldown:     21 * time.Second,
			Policy:       "wait",
			MaxHeadlines: 10,
		},
		Notify: NotifyConfig{
			Subject: "leadmaster.scan.progress",
		},
	}
}
