package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// defaultTolerance is the absolute tolerance of numeric assertions.
const defaultTolerance = 1e-6

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s failed: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

func evaluate(a Assertion, r *Result) error {
	switch a.Type {
	case AssertStatus:
		return assertStatus(a, r)
	case AssertObjective:
		return assertObjective(a, r)
	case AssertVariable:
		return assertVariable(a, r)
	case AssertError:
		return assertError(a, r)
	case AssertConstraints:
		return assertConstraints(a, r)
	case AssertConstraintCount:
		return assertConstraintCount(a, r)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// solved guards assertions that need a solver result.
func solved(a Assertion, r *Result) error {
	if r.Stage == StageSolve {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: "a solved model",
		Actual:   fmt.Sprintf("pipeline stopped at %s", r.Stage),
	}
}

func assertStatus(a Assertion, r *Result) error {
	if err := solved(a, r); err != nil {
		return err
	}
	if r.Status != a.Status {
		return &AssertionError{Type: a.Type, Expected: a.Status, Actual: describeStatus(r)}
	}
	return nil
}

func describeStatus(r *Result) string {
	if msg := r.Solve.Message(); msg != "" {
		return fmt.Sprintf("%s (%s)", r.Status, msg)
	}
	return r.Status
}

func assertObjective(a Assertion, r *Result) error {
	if err := solved(a, r); err != nil {
		return err
	}
	if !near(r.Objective, *a.Value, a.Tolerance) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%g", *a.Value),
			Actual:   fmt.Sprintf("%g (status %s)", r.Objective, r.Status),
		}
	}
	return nil
}

func assertVariable(a Assertion, r *Result) error {
	if err := solved(a, r); err != nil {
		return err
	}
	name := fmt.Sprintf("%s%v", a.Variable, a.Index)
	got, ok := r.Solve.Variable(a.Variable).Get(a.Index...)
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %g", name, *a.Value),
			Actual:   fmt.Sprintf("no value (status %s)", r.Status),
		}
	}
	if !near(got, *a.Value, a.Tolerance) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %g", name, *a.Value),
			Actual:   fmt.Sprintf("%g", got),
		}
	}
	return nil
}

func assertError(a Assertion, r *Result) error {
	if r.Err == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("failure at %s", a.Stage),
			Actual:   fmt.Sprintf("solved with status %s", r.Status),
		}
	}
	if r.Stage != a.Stage {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("failure at %s", a.Stage),
			Actual:   fmt.Sprintf("failure at %s: %v", r.Stage, r.Err),
		}
	}
	if a.Code != "" {
		var codes []string
		for _, d := range r.Diagnostics {
			codes = append(codes, d.Code)
		}
		if !slices.Contains(codes, a.Code) {
			return &AssertionError{
				Type:     a.Type,
				Expected: "code " + a.Code,
				Actual:   fmt.Sprintf("codes %v", codes),
			}
		}
	}
	if a.Contains != "" && !strings.Contains(r.Err.Error(), a.Contains) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("message containing %q", a.Contains),
			Actual:   r.Err.Error(),
		}
	}
	return nil
}

func assertConstraints(a Assertion, r *Result) error {
	if err := solved(a, r); err != nil {
		return err
	}
	if !slices.Equal(r.Constraints, a.Names) {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%v", a.Names),
			Actual:   fmt.Sprintf("%v", r.Constraints),
		}
	}
	return nil
}

func assertConstraintCount(a Assertion, r *Result) error {
	if err := solved(a, r); err != nil {
		return err
	}
	if len(r.Constraints) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d constraints", *a.Count),
			Actual:   fmt.Sprintf("%d", len(r.Constraints)),
		}
	}
	return nil
}

func near(got, want, tol float64) bool {
	if tol == 0 {
		tol = defaultTolerance
	}
	return math.Abs(got-want) <= tol
}
