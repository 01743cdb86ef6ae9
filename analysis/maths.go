package analysis

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/rlch/cw/model"
)

// Maths errors.
var (
	ErrUnresolvedVariable = errors.New("unresolved scripted variable")
	ErrNotNumeric         = errors.New("maths expression is not numeric")
)

// identifiers collects the names an expression refers to.
type identifiers struct {
	names []string
}

func (v *identifiers) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		v.names = append(v.names, id.Value)
	}
}

// EvalMaths evaluates the body of an `@[ ... ]` expression. Bare names
// refer to scripted variables: `x` reads `@x`. lookup resolves a variable,
// @ included.
func EvalMaths(text string, lookup func(name string) (model.Value, bool)) (float64, error) {
	text = strings.TrimSpace(text)

	tree, err := parser.Parse(text)
	if err != nil {
		return 0, fmt.Errorf("parse maths %q: %w", text, err)
	}

	ids := &identifiers{}
	ast.Walk(&tree.Node, ids)

	env := make(map[string]any, len(ids.names))

	for _, name := range ids.names {
		v, ok := lookup("@" + name)
		if !ok {
			return 0, fmt.Errorf("%w: @%s", ErrUnresolvedVariable, name)
		}

		n, ok := v.(*model.Number)
		if !ok {
			return 0, fmt.Errorf("%w: @%s is %s", ErrNotNumeric, name, v)
		}

		f, err := strconv.ParseFloat(n.Text, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: @%s is %s", ErrNotNumeric, name, n.Text)
		}

		env[name] = f
	}

	program, err := expr.Compile(text, expr.Env(env))
	if err != nil {
		return 0, fmt.Errorf("compile maths %q: %w", text, err)
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return 0, fmt.Errorf("evaluate maths %q: %w", text, err)
	}

	switch out := output.(type) {
	case float64:
		return out, nil
	case int:
		return float64(out), nil
	}

	return 0, fmt.Errorf("%w: %q returned %T", ErrNotNumeric, text, output)
}

// formatNumber renders a maths result the way scripts write numbers.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
