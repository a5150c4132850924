package solver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// Status is the outcome of Solve.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusTimeout    Status = "timeout"
	StatusError      Status = "error"
)

// Options tune Solve. Zero values select defaults.
type Options struct {
	TimeLimit   time.Duration // 0 means no limit beyond ctx
	Tolerance   float64       // simplex reduced-cost tolerance
	IntegralTol float64       // distance from an integer accepted as integral
	MaxNodes    int           // branch-and-bound node budget
	Logger      *slog.Logger
}

const (
	defaultTolerance   = 1e-9
	defaultIntegralTol = 1e-6
	defaultMaxNodes    = 100000
)

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = defaultTolerance
	}
	if o.IntegralTol <= 0 {
		o.IntegralTol = defaultIntegralTol
	}
	if o.MaxNodes <= 0 {
		o.MaxNodes = defaultMaxNodes
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Solution is the result of Solve. Values is indexed by column and is
// only meaningful when Feasible is set.
type Solution struct {
	Status    Status
	Feasible  bool
	Objective float64
	Values    []float64
	Nodes     int
	Duration  time.Duration
	Message   string
}

// ErrNodeLimit is reported in Solution.Message when the node budget runs
// out before the search tree is exhausted.
var ErrNodeLimit = errors.New("branch-and-bound node limit reached")

type node struct {
	lower, upper []float64
}

// Solve optimises p. It never returns a nil Solution.
//
// The simplex itself cannot be interrupted. When ctx ends during a node,
// Solve returns StatusTimeout at once and that node's relaxation keeps
// running in the background until it completes; its result is dropped.
func Solve(ctx context.Context, p *Problem, opts Options) *Solution {
	opts = opts.withDefaults()
	start := time.Now()
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	s := &search{p: p, opts: opts, relax: newRelaxation(p, opts.Tolerance)}
	sol := s.run(ctx)
	sol.Nodes = s.nodes
	sol.Duration = time.Since(start)
	opts.Logger.Debug("solve finished",
		"status", sol.Status, "nodes", sol.Nodes, "columns", len(p.cols), "rows", len(p.rows), "duration", sol.Duration)
	return sol
}

type search struct {
	p     *Problem
	opts  Options
	relax *relaxation
	lp    func(lower, upper []float64) lpOutcome // defaults to relax.solve
	nodes int

	best    []float64
	bestObj float64 // minimisation form
}

func (s *search) run(ctx context.Context) *Solution {
	lower, upper := make([]float64, len(s.p.cols)), make([]float64, len(s.p.cols))
	for i, c := range s.p.cols {
		lower[i], upper[i] = c.Lower, c.Upper
		if c.Integer {
			lower[i], upper[i] = math.Ceil(lower[i]-s.opts.IntegralTol), math.Floor(upper[i]+s.opts.IntegralTol)
		}
		if lower[i] > upper[i] {
			return &Solution{Status: StatusInfeasible, Message: fmt.Sprintf("column %s has empty bounds", c.Label)}
		}
	}
	for _, r := range s.p.rows {
		if len(r.Terms) == 0 && !constantHolds(r.Rel, r.RHS, s.opts.IntegralTol) {
			return &Solution{Status: StatusInfeasible, Message: fmt.Sprintf("constraint %s reduces to 0 %s %v", r.Label, r.Rel, r.RHS)}
		}
	}
	fixed, msg := s.fixUnused(lower, upper)
	if msg != "" {
		return &Solution{Status: StatusUnbounded, Message: msg}
	}

	stack := []node{{lower: lower, upper: upper}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return s.interrupted(err, fixed)
		}
		if s.nodes >= s.opts.MaxNodes {
			return s.interrupted(ErrNodeLimit, fixed)
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		s.nodes++

		out, err := s.solveNode(ctx, nd)
		if err != nil {
			return s.interrupted(err, fixed)
		}
		switch out.status {
		case StatusInfeasible:
			continue
		case StatusUnbounded:
			return &Solution{Status: StatusUnbounded, Message: "objective is unbounded"}
		case StatusError:
			return &Solution{Status: StatusError, Message: out.err.Error()}
		}
		if s.best != nil && out.obj >= s.bestObj-s.gap() {
			continue
		}
		j, v := s.branchColumn(out.x, nd)
		if j < 0 {
			s.best, s.bestObj = out.x, out.obj
			s.opts.Logger.Debug("new incumbent", "node", s.nodes, "objective", s.objective(out.x, fixed))
			continue
		}
		down := node{lower: nd.lower, upper: clone(nd.upper)}
		down.upper[j] = math.Floor(v)
		up := node{lower: clone(nd.lower), upper: nd.upper}
		up.lower[j] = math.Ceil(v)
		if v-math.Floor(v) > 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}
	if s.best == nil {
		return &Solution{Status: StatusInfeasible, Message: "no feasible solution"}
	}
	return s.solution(StatusOptimal, fixed)
}

func (s *search) gap() float64 {
	return s.opts.IntegralTol * (1 + math.Abs(s.bestObj))
}

// solveNode runs the relaxation off the calling goroutine so that an
// expiring context interrupts the wait. An abandoned simplex still runs to
// completion; the buffered channel lets it exit without a receiver. It only
// reads the node's bounds, which the search never touches again.
func (s *search) solveNode(ctx context.Context, nd node) (lpOutcome, error) {
	solve := s.lp
	if solve == nil {
		solve = s.relax.solve
	}
	ch := make(chan lpOutcome, 1)
	go func() { ch <- solve(nd.lower, nd.upper) }()
	select {
	case <-ctx.Done():
		return lpOutcome{}, ctx.Err()
	case out := <-ch:
		return out, nil
	}
}

// fixUnused assigns columns that appear in no row to the bound favoured
// by the objective. It reports a message when such a column makes the
// objective unbounded.
func (s *search) fixUnused(lower, upper []float64) (map[int]float64, string) {
	cost := make(map[int]float64, len(s.p.objective))
	for _, t := range s.p.objective {
		cost[t.Col] = t.Coef
		if s.p.sense == Maximize {
			cost[t.Col] = -t.Coef
		}
	}
	fixed := make(map[int]float64)
	for col, c := range s.p.cols {
		if _, active := s.relax.pos[col]; active {
			continue
		}
		var v float64
		switch k := cost[col]; {
		case k > 0:
			v = lower[col]
		case k < 0:
			v = upper[col]
		default:
			v = math.Max(lower[col], math.Min(0, upper[col]))
		}
		if math.IsInf(v, 0) {
			return nil, fmt.Sprintf("objective is unbounded in %s", c.Label)
		}
		fixed[col] = v
	}
	return fixed, ""
}

// branchColumn picks the most fractional integer column, or -1.
func (s *search) branchColumn(x []float64, nd node) (int, float64) {
	best, bestFrac := -1, 0.0
	for _, col := range s.relax.active {
		if !s.p.cols[col].Integer {
			continue
		}
		v := x[col]
		frac := math.Abs(v - math.Round(v))
		if frac > s.opts.IntegralTol && frac > bestFrac {
			best, bestFrac = col, frac
		}
	}
	if best < 0 {
		return -1, 0
	}
	return best, x[best]
}

func (s *search) interrupted(err error, fixed map[int]float64) *Solution {
	if s.best != nil {
		sol := s.solution(StatusTimeout, fixed)
		sol.Message = err.Error()
		return sol
	}
	return &Solution{Status: StatusTimeout, Message: err.Error()}
}

func (s *search) solution(status Status, fixed map[int]float64) *Solution {
	values := clone(s.best)
	for col, v := range fixed {
		values[col] = v
	}
	for i, c := range s.p.cols {
		if c.Integer {
			values[i] = math.Round(values[i])
		}
		if values[i] == 0 {
			values[i] = 0 // drop negative zero
		}
	}
	return &Solution{Status: status, Feasible: true, Values: values, Objective: s.objective(values, nil)}
}

// objective evaluates the user-facing objective at x.
func (s *search) objective(x []float64, fixed map[int]float64) float64 {
	total := s.p.objConst
	for _, t := range s.p.objective {
		v := x[t.Col]
		if f, ok := fixed[t.Col]; ok {
			v = f
		}
		total += t.Coef * v
	}
	return total
}

func constantHolds(rel Relation, rhs, tol float64) bool {
	switch rel {
	case LessEq:
		return 0 <= rhs+tol
	case GreaterEq:
		return 0 >= rhs-tol
	default:
		return math.Abs(rhs) <= tol
	}
}

func clone(xs []float64) []float64 {
	return append([]float64(nil), xs...)
}
