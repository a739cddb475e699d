// Package notify delivers scan progress to the log and to NATS subscribers.
package notify

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ppiankov/leadmaster/internal/model"
)

// DefaultSubject is the NATS subject for progress events
const DefaultSubject = "leadmaster.scan.progress"

// Log returns a progress func that writes every update to logger.
// Per-keyword fetch updates go to Debug, stage changes to Info.
func Log(logger *zap.Logger) model.ProgressFunc {
	if logger == nil {
		logger = zap.L()
	}
	return func(ev model.Progress) {
		fields := []zap.Field{
			zap.String("run_id", ev.RunID),
			zap.String("stage", string(ev.Stage)),
			zap.Int("done", ev.Done),
			zap.Int("total", ev.Total),
		}
		if ev.Message != "" {
			fields = append(fields, zap.String("message", ev.Message))
		}
		if ev.Stage == model.StageFetch {
			logger.Debug("scan progress", fields...)
			return
		}
		logger.Info("scan progress", fields...)
	}
}

// Multi fans one update out to every non-nil func, in order
func Multi(funcs ...model.ProgressFunc) model.ProgressFunc {
	var live []model.ProgressFunc
	for _, f := range funcs {
		if f != nil {
			live = append(live, f)
		}
	}
	return func(ev model.Progress) {
		for _, f := range live {
			f(ev)
		}
	}
}

// Conn is the publishing side of a NATS connection
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// Publisher sends progress events as JSON on one subject
type Publisher struct {
	conn    Conn
	subject string
}

// Connect dials NATS and returns a publisher
func Connect(url, subject string) (*Publisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("leadmaster"),
		nats.Timeout(3*time.Second),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "notify: connect to %s", url)
	}
	return NewPublisher(nc, subject), nil
}

// NewPublisher wraps an existing connection
func NewPublisher(conn Conn, subject string) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Publisher{conn: conn, subject: subject}
}

// Publish sends one event
func (p *Publisher) Publish(ev model.Progress) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "notify: encode progress")
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return eris.Wrapf(err, "notify: publish to %s", p.subject)
	}
	return nil
}

// Progress adapts the publisher to a progress func. Publish failures are
// logged and never interrupt the scan.
func (p *Publisher) Progress() model.ProgressFunc {
	return func(ev model.Progress) {
		if err := p.Publish(ev); err != nil {
			zap.L().Warn("progress publish failed", zap.Error(err))
		}
	}
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() error {
	return p.conn.Drain()
}
