package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jowpereira/LOS/internal/ir"
	"github.com/jowpereira/LOS/internal/run"
)

// Run is one audited solve.
type Run struct {
	ID          string
	Seq         int64 // assigned by WriteRun
	SourcePath  string
	Fingerprint string
	Status      string
	Objective   float64
	HasSolution bool
	Nodes       int
	Duration    time.Duration
	Message     string
	Version     string
	Values      []RunValue
}

// RunValue is the solved value of one variable instance.
type RunValue struct {
	Variable string
	Index    ir.Tuple
	Value    float64
}

// NewRun builds an audit record from an execution result. Values are
// flattened in variable-name order, instances in expansion order.
func NewRun(sourcePath, fingerprint, version string, res *run.SolveResult) Run {
	r := Run{
		SourcePath:  sourcePath,
		Fingerprint: fingerprint,
		Status:      string(res.Status),
		Objective:   res.Objective,
		HasSolution: res.HasSolution,
		Nodes:       res.Nodes,
		Duration:    res.Duration,
		Message:     res.Message,
		Version:     version,
	}
	for _, name := range res.VarNames() {
		for _, vv := range res.Values[name] {
			r.Values = append(r.Values, RunValue{Variable: name, Index: vv.Index, Value: vv.Value})
		}
	}
	return r
}

// IDGenerator generates run ids.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined ids in order, for tests.
// Panics when exhausted.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	pos int
}

// NewFixedGenerator creates a generator returning ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pos >= len(g.ids) {
		panic("FixedGenerator: no more ids")
	}
	id := g.ids[g.pos]
	g.pos++
	return id
}
