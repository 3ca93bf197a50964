package builders

import (
	"context"

	"odools/internal/depgraph"
	"odools/internal/logging"
	"odools/internal/stage"
	"odools/internal/symbols"
)

// Scheduler owns the four per-stage worklists and gates each pending item on
// its recorded dependencies before running the matching stage builder
// (spec.md §4.6, §5: "a stage may only start when every listed dependency
// has reached the required level"). Each worklist preserves FIFO insertion
// order among items that are equally ready.
type Scheduler struct {
	store   *symbols.Store
	graph   *depgraph.Graph
	builder *Builders

	queues [stage.NumStages][]symbols.FileLikeID
	queued [stage.NumStages]map[symbols.ID]bool
}

// NewScheduler creates an empty Scheduler over the given components.
func NewScheduler(store *symbols.Store, graph *depgraph.Graph, b *Builders) *Scheduler {
	s := &Scheduler{store: store, graph: graph, builder: b}
	for i := range s.queued {
		s.queued[i] = make(map[symbols.ID]bool)
	}
	return s
}

// Enqueue appends f to st's worklist, unless it's already pending there.
func (s *Scheduler) Enqueue(st stage.Stage, f symbols.FileLikeID) {
	idx := st.Index()
	id := f.ID()
	if s.queued[idx][id] {
		return
	}
	s.queued[idx][id] = true
	s.queues[idx] = append(s.queues[idx], f)
}

// ready reports whether f may start stage st: its own earlier stages have
// completed (monotone stage progression), and every dependency it recorded
// at (st, depStage), for every depStage legally below st, has itself
// reached Done.
func (s *Scheduler) ready(f symbols.FileLikeID, st stage.Stage) bool {
	ent, ok := s.store.Get(f.ID())
	if !ok {
		return false
	}
	for _, earlier := range stage.All {
		if earlier >= st {
			break
		}
		if ent.BuildStatus(earlier) != stage.Done {
			return false
		}
	}
	for _, dep := range stage.All {
		if !stage.LegalDependency(st, dep) {
			continue
		}
		for _, other := range s.graph.Dependencies(f, st, dep) {
			oe := s.store.MustGet(other.ID())
			if oe.BuildStatus(dep) != stage.Done {
				return false
			}
		}
	}
	return true
}

func (s *Scheduler) dequeueAt(idx, i int) symbols.FileLikeID {
	f := s.queues[idx][i]
	s.queues[idx] = append(s.queues[idx][:i:i], s.queues[idx][i+1:]...)
	delete(s.queued[idx], f.ID())
	return f
}

// ProcessOne runs the first ready item found scanning stages in ARCH..
// VALIDATION order, earliest-queued-first within a stage. Returns false if
// nothing in any worklist is currently ready.
func (s *Scheduler) ProcessOne(ctx context.Context) (bool, error) {
	for _, st := range stage.All {
		idx := st.Index()
		for i, f := range s.queues[idx] {
			ent, ok := s.store.Get(f.ID())
			if !ok || ent.BuildStatus(st) == stage.Done {
				// Unloaded while queued, or already rebuilt via another path:
				// drop the stale item.
				s.dequeueAt(idx, i)
				return true, nil
			}
			if !s.ready(f, st) {
				continue
			}
			s.dequeueAt(idx, i)
			return true, s.run(ctx, st, f)
		}
	}
	return false, nil
}

func (s *Scheduler) run(ctx context.Context, st stage.Stage, f symbols.FileLikeID) error {
	switch st {
	case stage.Arch:
		return s.builder.RunArch(ctx, f)
	case stage.ArchEval:
		return s.builder.RunArchEval(ctx, f)
	case stage.Odoo:
		return s.builder.RunOdoo(ctx, f)
	case stage.Validation:
		return s.builder.RunValidation(ctx, f)
	default:
		return nil
	}
}

// Drain runs the scheduler until no worklist has a ready item left. A stage
// builder error marks its file Invalid and is logged, not propagated — the
// rest of the worklist still needs to run.
func (s *Scheduler) Drain(ctx context.Context) {
	for {
		processed, err := s.ProcessOne(ctx)
		if err != nil {
			logging.Build("stage build error: %v", err)
		}
		if !processed {
			return
		}
	}
}

// Pending returns how many unprocessed items the worklists still hold
// (whether or not they're currently ready), for diagnostics/tests.
func (s *Scheduler) Pending() int {
	n := 0
	for _, q := range s.queues {
		n += len(q)
	}
	return n
}
