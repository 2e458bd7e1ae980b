package pipeline

import (
	"log/slog"

	"github.com/kingrea/spanweave/internal/tracelog"
)

// Option customizes a pipeline at build time.
type Option func(*Pipeline)

// WithLogger routes run and stage logging to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTraceSink sends stage trace records to sink. Without one, records go
// to the run logger. Pass tracelog.Discard{} to drop them.
func WithTraceSink(sink tracelog.Sink) Option {
	return func(p *Pipeline) {
		if sink != nil {
			p.trace = sink
		}
	}
}

// WithMetrics records run and stage metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithRunIDs injects a deterministic run id generator (primarily for tests).
func WithRunIDs(next func() string) Option {
	return func(p *Pipeline) {
		if next != nil {
			p.runIDs = next
		}
	}
}

// WithStrictDependencies makes Build reject pipelines where a stage reads a
// span type that no earlier stage declares it writes.
func WithStrictDependencies() Option {
	return func(p *Pipeline) {
		p.strict = true
	}
}
