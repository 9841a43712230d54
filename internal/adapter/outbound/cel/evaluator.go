// Package cel selects roles with CEL expressions such as
// `type == "Group" && glob("*Admin*", name)`.
package cel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/Noble-Effeciency13/PIMActivation-sub000/internal/domain/role"
)

// Limits applied to user-supplied selection expressions.
const (
	maxExpressionLength = 1024
	maxNestingDepth     = 50
	maxCostBudget       = 100_000
	// interruptCheckFreq is counted in comprehension iterations.
	interruptCheckFreq = 100
	evalTimeout        = 5 * time.Second
)

// Evaluator compiles and evaluates role selection expressions.
type Evaluator struct {
	env *cel.Env
}

// NewEvaluator creates an Evaluator over NewRoleEnvironment.
func NewEvaluator() (*Evaluator, error) {
	env, err := NewRoleEnvironment()
	if err != nil {
		return nil, fmt.Errorf("role selection environment: %w", err)
	}
	return &Evaluator{env: env}, nil
}

// Compile type-checks expr and plans a cost-limited program. The expression
// must evaluate to a bool.
func (e *Evaluator) Compile(expr string) (cel.Program, error) {
	ast, iss := e.env.Compile(expr)
	if err := iss.Err(); err != nil {
		return nil, fmt.Errorf("compile %q: %w", expr, err)
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return bool, got %s", out)
	}
	return e.env.Program(ast,
		cel.EvalOptions(cel.OptOptimize),
		cel.CostLimit(maxCostBudget),
		cel.InterruptCheckFrequency(interruptCheckFreq),
	)
}

// nestingDepth returns the deepest bracket nesting in expr.
func nestingDepth(expr string) int {
	depth, deepest := 0, 0
	for _, ch := range expr {
		switch ch {
		case '(', '[', '{':
			depth++
			deepest = max(deepest, depth)
		case ')', ']', '}':
			depth--
		}
	}
	return deepest
}

// ValidateExpression rejects empty, oversized or deeply nested input before
// compiling it.
func (e *Evaluator) ValidateExpression(expr string) error {
	switch {
	case expr == "":
		return errors.New("expression is empty")
	case len(expr) > maxExpressionLength:
		return fmt.Errorf("expression too long: %d > %d characters", len(expr), maxExpressionLength)
	}
	if d := nestingDepth(expr); d > maxNestingDepth {
		return fmt.Errorf("expression nesting of %d exceeds %d", d, maxNestingDepth)
	}
	if _, err := e.Compile(expr); err != nil {
		return fmt.Errorf("invalid selection expression: %w", err)
	}
	return nil
}

// Evaluate runs prg against one role at time now.
func (e *Evaluator) Evaluate(ctx context.Context, prg cel.Program, r role.Role, now time.Time) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()

	out, _, err := prg.ContextEval(ctx, BuildActivation(r, now))
	if err != nil {
		return false, fmt.Errorf("evaluate: %w", err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out.Value())
	}
	return matched, nil
}

// Selector filters roles with one validated expression.
type Selector struct {
	eval *Evaluator
	prg  cel.Program
	expr string
}

// NewSelector validates and compiles expr.
func NewSelector(expr string) (*Selector, error) {
	eval, err := NewEvaluator()
	if err != nil {
		return nil, err
	}
	if err := eval.ValidateExpression(expr); err != nil {
		return nil, err
	}
	prg, err := eval.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Selector{eval: eval, prg: prg, expr: expr}, nil
}

// String returns the source expression.
func (s *Selector) String() string {
	return s.expr
}

// Match reports whether r satisfies the expression.
func (s *Selector) Match(ctx context.Context, r role.Role, now time.Time) (bool, error) {
	return s.eval.Evaluate(ctx, s.prg, r, now)
}

// Filter returns the roles matching the expression, preserving order.
// The first evaluation error aborts the filter.
func (s *Selector) Filter(ctx context.Context, roles []role.Role, now time.Time) ([]role.Role, error) {
	var out []role.Role
	for _, r := range roles {
		ok, err := s.Match(ctx, r, now)
		if err != nil {
			return nil, fmt.Errorf("role %s: %w", r.DisplayName, err)
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
