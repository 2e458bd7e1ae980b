package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/spanweave/internal/annotation"
	"github.com/kingrea/spanweave/internal/errs"
	"github.com/kingrea/spanweave/internal/stage"
	"github.com/kingrea/spanweave/internal/tracelog"
)

// Pipeline is an immutable, ordered list of stages. Each Run owns a fresh
// store, so one pipeline may run many documents, sequentially or from
// several goroutines, as long as its stages tolerate that.
type Pipeline struct {
	entries []Entry
	names   []string

	logger  *slog.Logger
	trace   tracelog.Sink
	metrics *Metrics
	runIDs  func() string
	strict  bool
}

func newPipeline(entries []Entry, names []string) *Pipeline {
	return &Pipeline{
		entries: entries,
		names:   names,
		logger:  slog.New(slog.DiscardHandler),
		runIDs:  func() string { return uuid.NewString() },
	}
}

// Run processes text with every stage in order and returns the populated
// store. The first stage failure aborts the run; the partial store is
// discarded and the failure is reported as an *errs.StageError.
func (p *Pipeline) Run(text string) (*annotation.Store, error) {
	runID := p.runIDs()
	logger := p.logger.With(slog.String("run", runID))
	store := annotation.NewStore(text)
	base := &stage.Context{
		Text:   text,
		Store:  store,
		Logger: logger,
		Trace:  p.trace,
		RunID:  runID,
	}

	started := time.Now()
	logger.Debug("run started", slog.Int("stages", len(p.entries)), slog.Int("bytes", len(text)))
	for idx, e := range p.entries {
		name := p.names[idx]
		before := store.Len()
		stageStarted := time.Now()
		err := process(e.Stage, base.ForStage(name, idx))
		elapsed := time.Since(stageStarted)
		p.metrics.observeStage(name, elapsed, store.Len()-before)
		if err != nil {
			err = wrapStageError(name, idx, err)
			kind := errs.Classify(err)
			p.metrics.observeRun(string(kind), time.Since(started))
			logger.Error("stage failed",
				slog.String("stage", name),
				slog.Int("index", idx),
				slog.String("kind", string(kind)),
				slog.Any("error", err),
			)
			return nil, err
		}
		logger.Debug("stage finished",
			slog.String("stage", name),
			slog.Int("spans", store.Len()-before),
			slog.Duration("elapsed", elapsed),
		)
	}
	p.metrics.observeRun("ok", time.Since(started))
	logger.Info("run finished", slog.Int("spans", store.Len()), slog.Duration("elapsed", time.Since(started)))
	return store, nil
}

// process runs one stage and reports a panic as its failure.
func process(st stage.Stage, ctx *stage.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.Process(ctx)
}

func wrapStageError(name string, idx int, err error) error {
	var stageErr *errs.StageError
	if errors.As(err, &stageErr) {
		return err
	}
	return &errs.StageError{Stage: name, Index: idx, Err: err}
}

// Entries implements Sequence so a built pipeline can be appended to a
// builder as a unit.
func (p *Pipeline) Entries() []Entry {
	return append([]Entry(nil), p.entries...)
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []stage.Stage {
	out := make([]stage.Stage, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.Stage
	}
	return out
}

// Names returns the instance name of each stage in execution order.
func (p *Pipeline) Names() []string {
	return append([]string(nil), p.names...)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.entries)
}
