// Package eval compiles MARCout expressions to an AST (parse.go) and
// walks that AST against an explicit per-record environment (this file),
// replacing the reference implementation's reliance on its host
// runtime's own evaluator (§9 Design Notes).
package eval

import (
	"fmt"

	"marcout/internal/ast"
	"marcout/internal/marcerr"
)

// Env is the explicit {name -> value} environment an expression is
// evaluated against: extracted variables, collection parameters, and —
// inside a foreach subfield expression — "item::attribute" bindings.
// There is no implicit scope; every name an expression can reference
// must be present here.
type Env map[string]any

// Eval walks node against env and returns its concrete value. Scalars
// come back as string/float64/bool/nil; extractors that yield lists or
// maps pass those through by reference for built-ins like
// total_play_length to consume.
func Eval(node ast.Node, env Env) (any, error) {
	switch n := node.(type) {
	case ast.StringLit:
		return n.Value, nil

	case ast.NumberLit:
		return n.Value, nil

	case ast.BoolLit:
		return n.Value, nil

	case ast.NothingLit:
		return nil, nil

	case ast.Name:
		if n.Name == "nothing_value" {
			return nil, nil
		}
		v, ok := env[n.Name]
		if !ok {
			return nil, marcerr.Evaluation("undefined name %q", n.Name)
		}
		return v, nil

	case ast.Concat:
		left, err := Eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := Eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		return toString(left) + toString(right), nil

	case ast.Binary:
		left, err := Eval(n.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := Eval(n.Right, env)
		if err != nil {
			return nil, err
		}
		eq := toString(left) == toString(right)
		switch n.Op {
		case "==":
			return eq, nil
		case "!=":
			return !eq, nil
		default:
			return nil, marcerr.Evaluation("unknown binary operator %q", n.Op)
		}

	case ast.Call:
		args := make([]any, len(n.Args))
		for i, a := range n.Args {
			v, err := Eval(a, env)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		fn, ok := builtins[n.Func]
		if !ok {
			return nil, marcerr.Evaluation("unknown function %q", n.Func)
		}
		return fn(args)

	default:
		return nil, fmt.Errorf("eval: unhandled node type %T", node)
	}
}

// EvalString evaluates node and renders the result as text, the form
// field content and subfield values ultimately need.
func EvalString(node ast.Node, env Env) (string, error) {
	v, err := Eval(node, env)
	if err != nil {
		return "", err
	}
	return toString(v), nil
}

// EvalTruthy evaluates node and applies is_true's acceptance set — used
// for EXPORT WHEN / EXPORT UNLESS guards, which the grammar describes as
// "evaluates falsy/truthy" rather than requiring a literal is_true call.
func EvalTruthy(node ast.Node, env Env) (bool, error) {
	v, err := Eval(node, env)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return isTruthy(v), nil
}
