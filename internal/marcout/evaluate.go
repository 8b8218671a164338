// Package marcout orchestrates the full per-record pipeline: build a
// per-record environment from an Engine's extractors, instantiate field
// templates against it, and hand the populated fields to a serializer.
package marcout

import (
	"sort"

	"marcout/internal/ast"
	"marcout/internal/dsl"
	"marcout/internal/eval"
	"marcout/internal/marcfield"
)

// RecordResult is one record's evaluation outcome: the populated field
// list (possibly with some fields skipped) plus any non-fatal
// diagnostics collected along the way (§7 category 3).
type RecordResult struct {
	Fields      []marcfield.Field
	Diagnostics []string
}

// EvaluateRecord runs the §4.3 per-record evaluation loop: extract
// phase, then field phase (with export guards and foreach resolution).
func EvaluateRecord(engine *dsl.Engine, record map[string]any, params map[string]any) RecordResult {
	var diag []string

	env := eval.Env{}
	for k, v := range params {
		env[k] = v
	}
	for k, v := range record {
		env[k] = v
	}

	// Extract phase: order preserved so later extractors may reference
	// earlier ones; a failed extraction falls back to ::DEFAULT or "".
	for _, ex := range engine.Extractors {
		val, err := eval.Eval(ex.Expr, env)
		if err != nil {
			if ex.HasDefault {
				val = ex.Default
			} else {
				val = ""
				diag = append(diag, "extractor "+ex.Name+": "+err.Error())
			}
		}
		env[ex.Name] = val
	}

	var fields []marcfield.Field

	if engine.Leader != nil {
		fields = append(fields, marcfield.Field{Tag: "LDR", Kind: marcfield.KindLeader, Content: engine.Leader.Fixed})
	}

	for _, tmpl := range engine.Clone() {
		if tmpl.ExportIf != nil {
			ok, err := eval.EvalTruthy(tmpl.ExportIf, env)
			if err != nil {
				diag = append(diag, "field "+tmpl.Tag+" EXPORT WHEN: "+err.Error())
				continue
			}
			if !ok {
				continue
			}
		}
		if tmpl.ExportIfNot != nil {
			ok, err := eval.EvalTruthy(tmpl.ExportIfNot, env)
			if err != nil {
				diag = append(diag, "field "+tmpl.Tag+" EXPORT UNLESS: "+err.Error())
				continue
			}
			if ok {
				continue
			}
		}

		field := marcfield.Field{
			Tag:          tmpl.Tag,
			Ind1:         tmpl.Indicator1,
			Ind2:         tmpl.Indicator2,
			Terminator:   tmpl.Terminator,
			NoTerminator: tmpl.NoTerminator,
		}

		var err error
		switch tmpl.Kind {
		case dsl.KindFixed:
			field.Kind = marcfield.KindContent
			field.Content, err = eval.EvalString(tmpl.Content, env)

		case dsl.KindSubfielded:
			field.Kind = marcfield.KindSubfielded
			field.Subfields, err = evalSubfields(tmpl.Subfields, env)

		case dsl.KindForeach:
			field.Kind = marcfield.KindForeach
			field.Groups, err = evalForeach(tmpl.Foreach, env)
		}

		if err != nil {
			diag = append(diag, "field "+tmpl.Tag+": "+err.Error())
			continue
		}

		fields = append(fields, field)
	}

	return RecordResult{Fields: fields, Diagnostics: diag}
}

func evalSubfields(subs []dsl.SubfieldExpr, env eval.Env) ([]marcfield.Subfield, error) {
	out := make([]marcfield.Subfield, 0, len(subs))
	for _, s := range subs {
		v, err := eval.EvalString(s.Expr, env)
		if err != nil {
			return nil, err
		}
		out = append(out, marcfield.Subfield{Code: s.Code, Value: v})
	}
	return out, nil
}

// evalForeach resolves a ForeachBlock: look up the source list, stable
// sort by the first SORT BY key, then render one group per item with
// item::attribute references bound into a per-item environment layer.
func evalForeach(fe *dsl.ForeachBlock, env eval.Env) ([]marcfield.Group, error) {
	raw, ok := env[fe.SourceKey]
	if !ok {
		return nil, errSourceMissing(fe.SourceKey)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, errSourceNotList(fe.SourceKey)
	}

	itemEnvs := make([]eval.Env, len(items))
	for i, it := range items {
		itemEnvs[i] = itemEnv(env, fe.ItemAlias, it)
	}

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}

	if len(fe.SortBy) > 0 {
		key := fe.SortBy[0]
		keys := make([]sortKey, len(items))
		for i := range items {
			keys[i] = computeSortKey(key, itemEnvs[i])
		}
		sort.SliceStable(order, func(a, b int) bool {
			return lessSortKey(keys[order[a]], keys[order[b]])
		})
	}

	groups := make([]marcfield.Group, 0, len(items))
	for _, idx := range order {
		g := marcfield.Group{}
		for _, s := range fe.Subfields {
			v, err := eval.EvalString(s.Expr, itemEnvs[idx])
			if err != nil {
				return nil, err
			}
			g.Items = append(g.Items, marcfield.Subfield{Code: s.Code, Value: v})
		}
		if fe.Prefix != nil {
			v, err := eval.EvalString(fe.Prefix, env)
			if err != nil {
				return nil, err
			}
			g.Prefix = &v
		}
		if fe.Suffix != nil {
			v, err := eval.EvalString(fe.Suffix, env)
			if err != nil {
				return nil, err
			}
			g.Suffix = &v
		}
		if fe.Demarc != nil {
			v, err := eval.EvalString(fe.Demarc, env)
			if err != nil {
				return nil, err
			}
			g.Demarc = &v
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// itemEnv layers item::attribute bindings on top of the record
// environment — the explicit {name -> value} environment the Design
// Notes call for, with no implicit scope.
func itemEnv(base eval.Env, alias string, item any) eval.Env {
	out := make(eval.Env, len(base)+4)
	for k, v := range base {
		out[k] = v
	}
	if m, ok := item.(map[string]any); ok {
		for k, v := range m {
			out[alias+"::"+k] = v
		}
	}
	return out
}

type sortKey struct {
	numeric bool
	num     float64
	str     string
}

func computeSortKey(node ast.Node, env eval.Env) sortKey {
	v, err := eval.Eval(node, env)
	if err != nil {
		return sortKey{str: ""}
	}
	if f, ok := v.(float64); ok {
		return sortKey{numeric: true, num: f}
	}
	s := ""
	if v != nil {
		s = toStr(v)
	}
	if f, ferr := parseFloatLoose(s); ferr == nil {
		return sortKey{numeric: true, num: f}
	}
	return sortKey{str: s}
}

func lessSortKey(a, b sortKey) bool {
	if a.numeric && b.numeric {
		return a.num < b.num
	}
	return a.str < b.str
}
