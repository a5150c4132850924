package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jowpereira/LOS/internal/ir"
	"github.com/jowpereira/LOS/internal/run"
	"github.com/jowpereira/LOS/internal/solver"
	"github.com/jowpereira/LOS/internal/testutil"
)

// createTestStore opens a fresh store in a temp dir with sequential ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceIDGenerator("run")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun() Run {
	return Run{
		SourcePath:  "models/plan.los",
		Fingerprint: "abc123",
		Status:      "optimal",
		Objective:   10,
		HasSolution: true,
		Nodes:       1,
		Duration:    1500 * time.Microsecond,
		Version:     "dev",
		Values: []RunValue{
			{Variable: "qty", Index: ir.Tuple{ir.String("B")}, Value: 0},
			{Variable: "qty", Index: ir.Tuple{ir.String("A")}, Value: 1},
			{Variable: "flow", Index: ir.Tuple{ir.String("A"), ir.Int(3)}, Value: 2.5},
			{Variable: "z", Index: ir.Tuple{}, Value: 7},
		},
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Error(err)
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d failed: %v", i+1, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("Close #%d failed: %v", i+1, err)
		}
	}
}

func TestWriteRun_ReadRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	written, err := s.WriteRun(ctx, sampleRun())
	if err != nil {
		t.Fatalf("WriteRun failed: %v", err)
	}
	if written.ID != "run-0001" || written.Seq != 1 {
		t.Fatalf("written id/seq = %s/%d, want run-0001/1", written.ID, written.Seq)
	}

	got, err := s.ReadRun(ctx, written.ID)
	if err != nil {
		t.Fatalf("ReadRun failed: %v", err)
	}
	want := sampleRun()
	if got.Status != want.Status || got.Objective != want.Objective || !got.HasSolution {
		t.Errorf("header = %+v", got)
	}
	if got.Duration != want.Duration {
		t.Errorf("Duration = %v, want %v", got.Duration, want.Duration)
	}
	if len(got.Values) != len(want.Values) {
		t.Fatalf("got %d values, want %d", len(got.Values), len(want.Values))
	}
	for i, v := range got.Values {
		w := want.Values[i]
		if v.Variable != w.Variable || v.Index.Key() != w.Index.Key() || v.Value != w.Value {
			t.Errorf("value %d = %s%s=%v, want %s%s=%v", i, v.Variable, v.Index, v.Value, w.Variable, w.Index, w.Value)
		}
	}
	if got.Values[2].Index[1].Kind() != ir.KindInt {
		t.Errorf("integer index element decoded as %s", got.Values[2].Index[1].Kind())
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := sampleRun()
	r.ID = "fixed-id"
	first, err := s.WriteRun(ctx, r)
	if err != nil {
		t.Fatalf("first WriteRun failed: %v", err)
	}
	second, err := s.WriteRun(ctx, r)
	if err != nil {
		t.Fatalf("second WriteRun failed: %v", err)
	}
	if first.Seq != second.Seq {
		t.Errorf("rewrite changed seq: %d -> %d", first.Seq, second.Seq)
	}

	runs, err := s.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("got %d runs, want 1", len(runs))
	}
}

func TestListRuns_OrderAndFilter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, fp := range []string{"aaa", "bbb", "aaa"} {
		r := sampleRun()
		r.Fingerprint = fp
		if _, err := s.WriteRun(ctx, r); err != nil {
			t.Fatalf("WriteRun failed: %v", err)
		}
	}

	all, err := s.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 3 || all[0].Seq != 3 || all[2].Seq != 1 {
		t.Fatalf("unexpected listing order: %+v", all)
	}
	if all[0].Values != nil {
		t.Errorf("listing should not load values")
	}

	filtered, err := s.ListRuns(ctx, "aaa", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(filtered) != 2 || filtered[0].ID != "run-0003" || filtered[1].ID != "run-0001" {
		t.Errorf("filtered = %+v", filtered)
	}

	limited, err := s.ListRuns(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-0003" {
		t.Errorf("limited = %+v", limited)
	}
}

func TestListRuns_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if runs == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNewRun_FromResult(t *testing.T) {
	res := &run.SolveResult{
		Status:      solver.StatusOptimal,
		Objective:   4,
		HasSolution: true,
		Values: map[string][]run.VarValue{
			"y": {{Index: ir.Tuple{}, Value: 4}},
			"x": {{Index: ir.Tuple{ir.Int(1)}, Value: 1}, {Index: ir.Tuple{ir.Int(2)}, Value: 3}},
		},
	}

	r := NewRun("m.los", "fp", "v1", res)
	if r.Status != "optimal" || r.Objective != 4 || !r.HasSolution {
		t.Errorf("header = %+v", r)
	}
	var names []string
	for _, v := range r.Values {
		names = append(names, v.Variable)
	}
	if len(names) != 3 || names[0] != "x" || names[1] != "x" || names[2] != "y" {
		t.Errorf("value order = %v, want [x x y]", names)
	}
}

func TestFixedGenerator(t *testing.T) {
	g := NewFixedGenerator("a", "b")
	if g.Generate() != "a" || g.Generate() != "b" {
		t.Fatal("ids out of order")
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic when exhausted")
		}
	}()
	g.Generate()
}

func TestUUIDv7Generator_Unique(t *testing.T) {
	var g UUIDv7Generator
	a, b := g.Generate(), g.Generate()
	if a == b {
		t.Errorf("duplicate ids %s", a)
	}
	if len(a) != 36 {
		t.Errorf("id %q is not a UUID string", a)
	}
}

func TestMarshalIndex(t *testing.T) {
	tests := []struct {
		name string
		in   ir.Tuple
		want string
	}{
		{"scalar", ir.Tuple{}, "[]"},
		{"mixed", ir.Tuple{ir.String("A"), ir.Int(3), ir.Float(1.5)}, `["A",3,1.5]`},
		{"whole float", ir.Tuple{ir.Float(2)}, `[2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalIndex(tt.in)
			if err != nil {
				t.Fatalf("marshalIndex failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("marshalIndex = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestUnmarshalIndex_LargeInt(t *testing.T) {
	got, err := unmarshalIndex(`[9007199254740993]`)
	if err != nil {
		t.Fatalf("unmarshalIndex failed: %v", err)
	}
	if got[0].Kind() != ir.KindInt || got[0].Text() != "9007199254740993" {
		t.Errorf("got %s", got)
	}
}
