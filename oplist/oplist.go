package oplist

import (
	"github.com/gogpu/quadbatch"
)

// Op is anything the list can record. Sibling op types implement it to
// share the list with texture ops.
type Op = quadbatch.DrawOp

// DefaultMaxLookback is the number of recorded ops a new op is offered to.
const DefaultMaxLookback = 10

// Config configures an OpList.
type Config struct {
	// MaxLookback bounds how many earlier ops a new op is offered to.
	// Zero disables merging.
	MaxLookback int

	// Caps are passed to every merge attempt.
	Caps quadbatch.Caps
}

// DefaultConfig returns a look-back of 10 ops over DefaultCaps.
func DefaultConfig() Config {
	return Config{
		MaxLookback: DefaultMaxLookback,
		Caps:        quadbatch.DefaultCaps(),
	}
}

// Stats counts what happened to recorded ops.
type Stats struct {
	// Recorded is the number of ops passed to Record.
	Recorded int
	// Merged is the number of ops absorbed by an earlier op.
	Merged int
	// Flushed is the number of draw commands produced.
	Flushed int
	// Skipped is the number of ops that expanded to nothing.
	Skipped int
}

type entry struct {
	op        Op
	finalized bool
}

// OpList accumulates ops between flushes.
type OpList struct {
	cfg      Config
	ops      []entry
	inFlight []Op
	stats    Stats
}

// Executor runs the draw commands of a flush. Backends implement it.
type Executor interface {
	quadbatch.FlushTarget
	Execute(cmds []*quadbatch.DrawCommand) error
}

// New creates an empty list.
func New(cfg Config) *OpList {
	cfg.MaxLookback = max(cfg.MaxLookback, 0)
	return &OpList{cfg: cfg}
}

// Len returns the number of ops currently held.
func (l *OpList) Len() int { return len(l.ops) }

// Stats returns the counters accumulated since the list was created.
func (l *OpList) Stats() Stats { return l.stats }

// Record appends op, or merges it into an earlier op. It returns the op
// that now holds op's draws. A merged op is released immediately and must
// not be used by the caller.
func (l *OpList) Record(op Op) Op {
	l.stats.Recorded++
	bounds := op.Bounds()

	stop := max(len(l.ops)-l.cfg.MaxLookback, 0)
	for i := len(l.ops) - 1; i >= stop; i-- {
		candidate := l.ops[i].op
		if candidate.TryMerge(op, &l.cfg.Caps) {
			quadbatch.Logger().Debug("oplist: merged op",
				"op", op.Name(), "into", i, "lookback", len(l.ops)-1-i)
			op.Release()
			l.stats.Merged++
			return candidate
		}
		if candidate.Bounds().Intersects(bounds) {
			break
		}
	}
	l.ops = append(l.ops, entry{op: op})
	return op
}

// Finalize finalizes every op that has not been finalized yet. Ops
// recorded afterwards may still merge into finalized ones.
func (l *OpList) Finalize() {
	for i := range l.ops {
		if !l.ops[i].finalized {
			l.ops[i].op.Finalize()
			l.ops[i].finalized = true
		}
	}
}

// Flush finalizes any remaining ops and expands them in recording order.
// Ops that draw nothing are counted as skipped. The expanded ops keep
// their textures alive until Done; calling Flush again calls Done first.
func (l *OpList) Flush(target quadbatch.FlushTarget) []*quadbatch.DrawCommand {
	l.Done()
	l.Finalize()
	cmds := make([]*quadbatch.DrawCommand, 0, len(l.ops))
	skipped := 0
	for _, e := range l.ops {
		if cmd := e.op.Expand(target); cmd != nil {
			cmds = append(cmds, cmd)
		} else {
			skipped++
		}
		l.inFlight = append(l.inFlight, e.op)
	}
	quadbatch.Logger().Debug("oplist: flushed",
		"ops", len(l.ops), "commands", len(cmds), "skipped", skipped)
	l.stats.Flushed += len(cmds)
	l.stats.Skipped += skipped
	clear(l.ops)
	l.ops = l.ops[:0]
	return cmds
}

// Done releases the ops expanded by the last Flush. The commands that
// Flush returned must not be used afterwards.
func (l *OpList) Done() {
	for _, op := range l.inFlight {
		op.Release()
	}
	clear(l.inFlight)
	l.inFlight = l.inFlight[:0]
}

// Execute flushes the list into ex, runs the commands and releases the
// ops whether or not execution succeeded.
func (l *OpList) Execute(ex Executor) error {
	cmds := l.Flush(ex)
	defer l.Done()
	if len(cmds) == 0 {
		return nil
	}
	return ex.Execute(cmds)
}

// Reset releases every held op without drawing it.
func (l *OpList) Reset() {
	l.Done()
	for _, e := range l.ops {
		e.op.Release()
	}
	clear(l.ops)
	l.ops = l.ops[:0]
}
