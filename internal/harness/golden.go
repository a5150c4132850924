package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden compares the LP export of a golden scenario against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, scenario *Scenario, result *Result) {
	t.Helper()
	if !scenario.Golden {
		t.Fatalf("scenario %s is not marked golden", scenario.Name)
	}
	if result.LP == "" {
		t.Fatalf("scenario %s produced no LP export (stage %s)", scenario.Name, result.Stage)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, []byte(result.LP))
}
