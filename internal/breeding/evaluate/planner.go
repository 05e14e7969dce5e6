package evaluate

import (
	"context"
	"runtime"
	"sort"
	"sync"

	"breedplan.ai/internal/breeding/plan"
)

// Planner runs the two phases over many plans: assignment for every plan,
// then pricing for every plan that can still reach the Top (all when
// Top <= 0).
type Planner struct {
	Inputs  *Inputs
	Workers int
	Top     int
}

// Run generates, evaluates and ranks every plan for the request. No plan is
// not an error.
func (pl *Planner) Run(ctx context.Context, ivs []string, nature string) ([]*EvaluatedPlan, error) {
	plans, err := plan.Generate(ivs, nature)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, nil
	}
	evs, err := pl.Shortlist(ctx, plans)
	if err != nil {
		return nil, err
	}
	return pl.Cost(ctx, evs)
}

// Shortlist assigns owned creatures to every plan and drops the plans that
// score below the Top-th best. Plans tied with the Top-th score stay, since
// cost decides between them.
func (pl *Planner) Shortlist(ctx context.Context, plans []*plan.Plan) ([]*EvaluatedPlan, error) {
	evs := make([]*EvaluatedPlan, len(plans))
	err := fanOut(ctx, len(plans), pl.Workers, func(i int) {
		evs[i] = Assign(plans[i], pl.Inputs)
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(evs, func(i, j int) bool { return evs[i].Score > evs[j].Score })
	if pl.Top > 0 && len(evs) > pl.Top {
		n := pl.Top
		for n < len(evs) && evs[n].Score == evs[pl.Top-1].Score {
			n++
		}
		evs = evs[:n]
	}
	return evs, nil
}

// Cost prices each shortlisted plan and returns the Top, ranked.
func (pl *Planner) Cost(ctx context.Context, evs []*EvaluatedPlan) ([]*EvaluatedPlan, error) {
	err := fanOut(ctx, len(evs), pl.Workers, func(i int) {
		Price(evs[i], pl.Inputs)
	})
	if err != nil {
		return nil, err
	}
	out := Rank(evs)
	if pl.Top > 0 && len(out) > pl.Top {
		out = out[:pl.Top]
	}
	return out, nil
}

// EvaluateAll evaluates plans concurrently; results keep the input order.
func EvaluateAll(ctx context.Context, plans []*plan.Plan, in *Inputs, workers int) ([]*EvaluatedPlan, error) {
	evs := make([]*EvaluatedPlan, len(plans))
	err := fanOut(ctx, len(plans), workers, func(i int) {
		evs[i] = Evaluate(plans[i], in)
	})
	if err != nil {
		return nil, err
	}
	return evs, nil
}

// fanOut calls fn for 0..n-1 on a bounded pool and stops handing out work
// once ctx is done.
func fanOut(ctx context.Context, n, workers int, fn func(i int)) error {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}

	var err error
feed:
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	if err == nil {
		err = ctx.Err()
	}
	return err
}
