package airport

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dotcommander/airport/internal/errs"
	"github.com/dotcommander/airport/internal/logging"
)

// State is the progress of a single pipeline invocation.
type State int

// Invocation states. Done and Aborted are terminal.
const (
	Pending State = iota
	Stage1Running
	Stage1Complete
	Stage2Running
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Stage1Running:
		return "stage1-running"
	case Stage1Complete:
		return "stage1-complete"
	case Stage2Running:
		return "stage2-running"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	}
	return "unknown"
}

// Stage names, as reported to observers and in ValidationError.
const (
	StageResolve   = "resolve-airport"
	StageNormalize = "normalize-airport"
	StageFetch     = "fetch-airport-info"
	StageSummarize = "summarize-airport"
)

// RunOption customizes a single invocation.
type RunOption func(*invocation)

// WithStateHook reports every state transition along with the stage it
// belongs to.
func WithStateHook(fn func(state State, stage string)) RunOption {
	return func(inv *invocation) { inv.onState = fn }
}

// WithFragmentHook receives narrative fragments as they arrive. It is only
// used by Brief.
func WithFragmentHook(fn func(string)) RunOption {
	return func(inv *invocation) { inv.onFragment = fn }
}

type invocation struct {
	kind       string
	query      string
	state      State
	logger     *log.Logger
	onState    func(State, string)
	onFragment func(string)
}

func (inv *invocation) enter(state State, stage string) {
	inv.state = state
	inv.logger.Debug("pipeline transition", "pipeline", inv.kind, "query", inv.query, "stage", stage, "state", state)
	if inv.onState != nil {
		inv.onState(state, stage)
	}
}

func (inv *invocation) abort(stage string, err error) {
	inv.state = Aborted
	inv.logger.Debug("pipeline aborted", "pipeline", inv.kind, "query", inv.query, "stage", stage, "err", err)
	if inv.onState != nil {
		inv.onState(Aborted, stage)
	}
}

type stage[I, O any] struct {
	name     string
	run      func(context.Context, I) (O, error)
	validate func(O) error
}

// runStages runs first then second, validating each output before moving
// on. The first failure aborts the invocation.
func runStages[A, B, C any](ctx context.Context, inv *invocation, first stage[A, B], second stage[B, C], in A) (C, error) {
	var zero C

	inv.enter(Stage1Running, first.name)
	mid, err := first.run(ctx, in)
	if err == nil {
		err = first.validate(mid)
	}
	if err != nil {
		inv.abort(first.name, err)
		return zero, err
	}
	inv.enter(Stage1Complete, first.name)

	inv.enter(Stage2Running, second.name)
	out, err := second.run(ctx, mid)
	if err == nil {
		err = second.validate(out)
	}
	if err != nil {
		inv.abort(second.name, err)
		return zero, err
	}
	inv.enter(Done, second.name)
	return out, nil
}

// Pipeline runs the lookup and briefing pipelines. It holds no
// per-invocation state and is safe for concurrent use.
type Pipeline struct {
	tool     Lookup
	workflow Lookup
	narrator *Narrator
	logger   *log.Logger
}

// NewPipeline returns a Pipeline. tool backs Lookup; workflow and narrator
// back Brief.
func NewPipeline(tool, workflow Lookup, narrator *Narrator, logger *log.Logger) *Pipeline {
	return &Pipeline{
		tool:     tool,
		workflow: workflow,
		narrator: narrator,
		logger:   logging.OrDiscard(logger),
	}
}

func (p *Pipeline) newInvocation(kind, query string, opts []RunOption) *invocation {
	inv := &invocation{kind: kind, query: query, state: Pending, logger: p.logger}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Lookup runs the tool pipeline: fetch a raw record, then normalize it and
// render the fixed summary.
func (p *Pipeline) Lookup(ctx context.Context, query string, opts ...RunOption) (Result, error) {
	inv := p.newInvocation("lookup", query, opts)
	return runStages(ctx, inv,
		stage[string, RawRecord]{
			name: StageResolve,
			run: func(ctx context.Context, q string) (RawRecord, error) {
				if err := checkQuery(q); err != nil {
					return RawRecord{}, err
				}
				return p.tool.Lookup(ctx, q)
			},
			validate: func(r RawRecord) error { return validate(StageResolve, rawRecordSchema, r) },
		},
		stage[RawRecord, Result]{
			name: StageNormalize,
			run: func(_ context.Context, raw RawRecord) (Result, error) {
				rec := Normalize(raw)
				return Result{Record: rec, Summary: Summarize(rec)}, nil
			},
			validate: func(r Result) error { return validate(StageNormalize, resultSchema, r) },
		},
		query,
	)
}

// Brief runs the workflow pipeline: fetch and normalize a record, then
// stream a narrative for it.
func (p *Pipeline) Brief(ctx context.Context, query string, opts ...RunOption) (Briefing, error) {
	inv := p.newInvocation("brief", query, opts)
	return runStages(ctx, inv,
		stage[string, Record]{
			name: StageFetch,
			run: func(ctx context.Context, q string) (Record, error) {
				if err := checkQuery(q); err != nil {
					return Record{}, err
				}
				raw, err := p.workflow.Lookup(ctx, q)
				if err != nil {
					return Record{}, err
				}
				return Normalize(raw), nil
			},
			validate: func(r Record) error { return validate(StageFetch, recordSchema, r) },
		},
		stage[Record, Briefing]{
			name: StageSummarize,
			run: func(ctx context.Context, rec Record) (Briefing, error) {
				text, err := p.narrator.Narrate(ctx, rec, inv.onFragment)
				if err != nil {
					return Briefing{}, err
				}
				return Briefing{Record: rec, Narrative: text}, nil
			},
			validate: func(b Briefing) error { return validate(StageSummarize, briefingSchema, b) },
		},
		query,
	)
}

func checkQuery(q string) error {
	if strings.TrimSpace(q) == "" {
		return &errs.InputError{}
	}
	return nil
}
