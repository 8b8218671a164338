package dsl

import "strings"

// phrasePairs is applied in order; each multi-word keyword phrase collapses
// to its single underscored form so the expression parser can treat it as
// one word. Longer phrases are listed first so "IS NOT" doesn't get
// half-matched by a hypothetical shorter rule first.
var phrasePairs = []struct {
	from, to string
}{
	{"HAS NO VALUE", "HAS_NO_VALUE"},
	{"HAS VALUE", "HAS_VALUE"},
	{"STARTS WITH", "STARTS_WITH"},
	{"IS NOT", "IS_NOT"},
	{"IS TRUE", "IS_TRUE"},
	{"IS FALSE", "IS_FALSE"},
}

// RewritePhrases applies the §4.2 phrase-unification pass: multi-word
// keyword phrases collapse to a single underscored token. Quoted string
// literals are left untouched — a literal containing the text "IS TRUE"
// must not be rewritten.
func RewritePhrases(expr string) string {
	var out strings.Builder
	i := 0
	n := len(expr)
	for i < n {
		c := expr[i]
		if c == '"' || c == '\'' {
			start := i
			quote := c
			i++
			for i < n && expr[i] != quote {
				i++
			}
			if i < n {
				i++ // include closing quote
			}
			out.WriteString(expr[start:i])
			continue
		}

		matched := false
		for _, p := range phrasePairs {
			if strings.HasPrefix(expr[i:], p.from) {
				out.WriteString(p.to)
				i += len(p.from)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		out.WriteByte(c)
		i++
	}
	return out.String()
}
