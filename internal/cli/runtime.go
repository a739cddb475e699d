package cli

import (
	"github.com/ppiankov/leadmaster/internal/model"
	"github.com/ppiankov/leadmaster/internal/pipeline"
	"github.com/ppiankov/leadmaster/internal/store"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// runtime is what every pipeline-backed command needs
type runtime struct {
	cfg      *model.Config
	store    *store.Store
	pipeline *pipeline.Pipeline
}

// openRuntime loads configuration, opens the database and wires the
// pipeline. Callers must Close it.
func openRuntime() (*runtime, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.Store.Path, cfg.Store.MaxRetries)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.Build(cfg, st)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	zap.L().Debug("runtime ready", zap.String("db", cfg.Store.Path))
	return &runtime{cfg: cfg, store: st, pipeline: p}, nil
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		zap.L().Warn("closing store", zap.Error(err))
	}
}
