package dsl

import (
	"fmt"
	"strconv"
	"strings"

	"marcout/internal/ast"
	"marcout/internal/eval"
	"marcout/internal/marcerr"
)

var knownBlockNames = map[string]bool{
	"known_parameters":          true,
	"functions":                 true,
	"json_extracted_properties": true,
	"marc_field_templates":      true,
}

type rawLine struct {
	no   int
	text string
}

// Parse compiles MARCout export-definition text into an Engine, per the
// three-pass structure of §4.2: strip comments, segment into blocks,
// then parse each block's payload.
func Parse(source string) (*Engine, error) {
	stripped := stripComments(source)
	blocks, err := segmentBlocks(stripped)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		KnownParameters: map[string]bool{},
		Functions:       map[string]FuncDecl{},
	}

	if lines, ok := blocks["known_parameters"]; ok {
		engine.KnownParameters = parseKnownParameters(lines)
	}
	if lines, ok := blocks["functions"]; ok {
		engine.Functions = parseFunctions(lines)
	}
	if lines, ok := blocks["json_extracted_properties"]; ok {
		extractors, err := parseExtractors(lines)
		if err != nil {
			return nil, err
		}
		engine.Extractors = extractors
	}
	if lines, ok := blocks["marc_field_templates"]; ok {
		leader, fields, err := parseFieldTemplates(lines)
		if err != nil {
			return nil, err
		}
		engine.Leader = leader
		engine.Fields = fields
	}

	return engine, nil
}

// stripComments removes comment-only lines entirely and truncates inline
// trailing "#..." comments, leaving blank lines intact as field-template
// separators. Quote-aware so a literal containing "#" is never mistaken
// for a comment marker.
func stripComments(source string) []rawLine {
	src := strings.Split(source, "\n")
	out := make([]rawLine, 0, len(src))
	for idx, line := range src {
		no := idx + 1
		left := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(left, "#") {
			continue
		}
		out = append(out, rawLine{no: no, text: stripInlineComment(line)})
	}
	return out
}

func stripInlineComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			quote = c
		case '#':
			return line[:i]
		}
	}
	return line
}

// segmentBlocks splits comment-stripped lines into named blocks by
// "---- "-suffixed headers. The description block and any text before
// the first header are discarded.
func segmentBlocks(lines []rawLine) (map[string][]rawLine, error) {
	blocks := map[string][]rawLine{}
	current := ""
	for _, l := range lines {
		trimmedRight := strings.TrimRight(l.text, " \t")
		if strings.HasSuffix(trimmedRight, "----") {
			header := strings.TrimSpace(strings.TrimSuffix(trimmedRight, "----"))
			name := normalizeBlockName(header)
			if name == "description" {
				current = ""
				continue
			}
			if !knownBlockNames[name] {
				return nil, marcerr.Parse(l.no, "unknown block header %q", header)
			}
			current = name
			if _, exists := blocks[name]; !exists {
				blocks[name] = nil
			}
			continue
		}
		if current != "" {
			blocks[current] = append(blocks[current], l)
		}
	}
	return blocks, nil
}

func normalizeBlockName(header string) string {
	return strings.ReplaceAll(strings.ToLower(header), " ", "_")
}

func parseKnownParameters(lines []rawLine) map[string]bool {
	out := map[string]bool{}
	for _, l := range lines {
		t := strings.TrimSpace(l.text)
		if t != "" {
			out[t] = true
		}
	}
	return out
}

func parseFunctions(lines []rawLine) map[string]FuncDecl {
	out := map[string]FuncDecl{}
	for _, l := range lines {
		t := strings.TrimSpace(l.text)
		if t == "" {
			continue
		}
		name := t
		if idx := strings.Index(t, "("); idx >= 0 {
			name = strings.TrimSpace(t[:idx])
		}
		out[name] = FuncDecl{Name: name, Signature: t}
	}
	return out
}

const defaultTailMarker = "::DEFAULT"

func parseExtractors(lines []rawLine) ([]Extractor, error) {
	var out []Extractor
	for _, l := range lines {
		text := strings.TrimSpace(l.text)
		if text == "" {
			continue
		}
		idx := strings.Index(text, "=")
		if idx < 0 {
			return nil, marcerr.Parse(l.no, "malformed extractor line: %q", text)
		}
		name := strings.TrimSpace(text[:idx])
		rest := strings.TrimSpace(text[idx+1:])

		var (
			hasDefault bool
			defaultLit string
		)
		if dIdx := strings.Index(rest, defaultTailMarker); dIdx >= 0 {
			hasDefault = true
			defaultLit = unquoteIfQuoted(strings.TrimSpace(rest[dIdx+len(defaultTailMarker):]))
			rest = strings.TrimSpace(rest[:dIdx])
		}

		node, err := exprNode(rest, l.no)
		if err != nil {
			return nil, err
		}
		out = append(out, Extractor{
			Name:       name,
			Expr:       node,
			HasDefault: hasDefault,
			Default:    defaultLit,
		})
	}
	return out, nil
}

// exprNode applies the §4.2 keyword rewrite (phrase unification, then
// the AST-level operator rewrite performed inside eval.ParseExpr) to one
// expression line.
func exprNode(raw string, lineNo int) (ast.Node, error) {
	unified := RewritePhrases(raw)
	node, err := eval.ParseExpr(unified)
	if err != nil {
		return nil, marcerr.Parse(lineNo, "%v", err)
	}
	return node, nil
}

func unquoteIfQuoted(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// splitPrefix splits a statement line at its first ':' into an
// uppercased keyword and the remaining text, per the §4.2 line-prefix
// table.
func splitPrefix(line string) (key, rest string, ok bool) {
	idx := strings.Index(line, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.ToUpper(strings.TrimSpace(line[:idx])), line[idx+1:], true
}

// parseFieldTemplates runs the stateful field-template sweep of §4.2:
// an index-controlled traversal with one-line look-ahead for two-line
// statements (SUBFIELD/EACH-SUBFIELD/LDR POS).
func parseFieldTemplates(lines []rawLine) (*LeaderTemplate, []*FieldTemplate, error) {
	var (
		fields         []*FieldTemplate
		cur            *FieldTemplate
		leaderOverride map[int]byte
		leaderStarted  bool
	)

	closeField := func() {
		if cur == nil {
			return
		}
		if cur.Terminator == "" && !cur.NoTerminator {
			cur.Terminator = "."
		}
		fields = append(fields, cur)
		cur = nil
	}

	for i := 0; i < len(lines); i++ {
		text := strings.TrimSpace(lines[i].text)
		lineNo := lines[i].no

		if text == "" {
			closeField()
			continue
		}

		key, rawRest, ok := splitPrefix(text)
		if !ok {
			return nil, nil, marcerr.Parse(lineNo, "malformed field statement: %q", text)
		}
		rest := strings.TrimSpace(rawRest)

		switch key {
		case "FIELD":
			closeField()
			cur = &FieldTemplate{Tag: rest}

		case "LDR":
			leaderStarted = true
			if leaderOverride == nil {
				leaderOverride = map[int]byte{}
			}

		case "LDR POS":
			pos, err := strconv.Atoi(rest)
			if err != nil {
				return nil, nil, marcerr.Parse(lineNo, "invalid LDR POS %q: %v", rest, err)
			}
			if i+1 >= len(lines) {
				return nil, nil, marcerr.Parse(lineNo, "LDR POS %d has no following OVERRIDE line", pos)
			}
			nextKey, nextRest, nextOK := splitPrefix(strings.TrimSpace(lines[i+1].text))
			if !nextOK || nextKey != "OVERRIDE" {
				return nil, nil, marcerr.Parse(lines[i+1].no, "expected OVERRIDE line after LDR POS %d", pos)
			}
			val := strings.TrimSpace(nextRest)
			leaderStarted = true
			if leaderOverride == nil {
				leaderOverride = map[int]byte{}
			}
			if val == "blank" {
				leaderOverride[pos] = ' '
			} else if len(val) > 0 {
				leaderOverride[pos] = val[0]
			}
			i++

		case "INDC1":
			if cur == nil {
				return nil, nil, marcerr.Parse(lineNo, "INDC1 outside a field")
			}
			b := indicatorByte(rest)
			cur.Indicator1 = &b

		case "INDC2":
			if cur == nil {
				return nil, nil, marcerr.Parse(lineNo, "INDC2 outside a field")
			}
			b := indicatorByte(rest)
			cur.Indicator2 = &b

		case "CONTENT":
			if cur == nil {
				return nil, nil, marcerr.Parse(lineNo, "CONTENT outside a field")
			}
			node, err := exprNode(rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			cur.Kind = KindFixed
			cur.Content = node

		case "SUBFIELD":
			if cur == nil {
				return nil, nil, marcerr.Parse(lineNo, "SUBFIELD outside a field")
			}
			if i+1 >= len(lines) {
				return nil, nil, marcerr.Parse(lineNo, "SUBFIELD %s has no expression line", rest)
			}
			exprText := strings.TrimSpace(lines[i+1].text)
			node, err := exprNode(exprText, lines[i+1].no)
			if err != nil {
				return nil, nil, err
			}
			cur.Kind = KindSubfielded
			cur.Subfields = append(cur.Subfields, SubfieldExpr{Code: rest, Expr: node})
			i++

		case "FOR EACH":
			if cur == nil {
				return nil, nil, marcerr.Parse(lineNo, "FOR EACH outside a field")
			}
			alias, source, err := splitForEach(rest)
			if err != nil {
				return nil, nil, marcerr.Parse(lineNo, "%v", err)
			}
			cur.Kind = KindForeach
			cur.Foreach = &ForeachBlock{ItemAlias: alias, SourceKey: source}

		case "EACH-SUBFIELD":
			if cur == nil || cur.Foreach == nil {
				return nil, nil, marcerr.Parse(lineNo, "EACH-SUBFIELD outside a FOR EACH block")
			}
			if i+1 >= len(lines) {
				return nil, nil, marcerr.Parse(lineNo, "EACH-SUBFIELD %s has no expression line", rest)
			}
			exprText := strings.TrimSpace(lines[i+1].text)
			node, err := exprNode(exprText, lines[i+1].no)
			if err != nil {
				return nil, nil, err
			}
			cur.Foreach.Subfields = append(cur.Foreach.Subfields, SubfieldExpr{Code: rest, Expr: node})
			i++

		case "SORT BY":
			if cur == nil || cur.Foreach == nil {
				return nil, nil, marcerr.Parse(lineNo, "SORT BY outside a FOR EACH block")
			}
			node, err := exprNode(rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			cur.Foreach.SortBy = append(cur.Foreach.SortBy, node)

		case "EACH-PREFIX":
			if cur == nil || cur.Foreach == nil {
				return nil, nil, marcerr.Parse(lineNo, "EACH-PREFIX outside a FOR EACH block")
			}
			node, err := exprNode(rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			cur.Foreach.Prefix = node

		case "EACH-SUFFIX":
			if cur == nil || cur.Foreach == nil {
				return nil, nil, marcerr.Parse(lineNo, "EACH-SUFFIX outside a FOR EACH block")
			}
			node, err := exprNode(rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			cur.Foreach.Suffix = node

		case "DEMARC WITH":
			if cur == nil || cur.Foreach == nil {
				return nil, nil, marcerr.Parse(lineNo, "DEMARC WITH outside a FOR EACH block")
			}
			node, err := exprNode(rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			cur.Foreach.Demarc = node

		case "EXPORT WHEN":
			if cur == nil {
				return nil, nil, marcerr.Parse(lineNo, "EXPORT WHEN outside a field")
			}
			node, err := exprNode(rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			cur.ExportIf = node

		case "EXPORT UNLESS":
			if cur == nil {
				return nil, nil, marcerr.Parse(lineNo, "EXPORT UNLESS outside a field")
			}
			node, err := exprNode(rest, lineNo)
			if err != nil {
				return nil, nil, err
			}
			cur.ExportIfNot = node

		case "TERMINATE DATA WITH":
			if cur == nil {
				return nil, nil, marcerr.Parse(lineNo, "TERMINATE DATA WITH outside a field")
			}
			val := strings.ToUpper(unquoteIfQuoted(strings.TrimSpace(rest)))
			switch val {
			case "", "NONE", "NOTHING":
				cur.NoTerminator = true
				cur.Terminator = ""
			default:
				cur.Terminator = unquoteIfQuoted(strings.TrimSpace(rest))
			}

		default:
			return nil, nil, marcerr.Parse(lineNo, "unknown field-template statement %q", key)
		}
	}

	closeField()

	var leader *LeaderTemplate
	if leaderStarted {
		leader = &LeaderTemplate{Fixed: renderLeader(leaderOverride)}
	}

	return leader, fields, nil
}

func indicatorByte(rest string) byte {
	if rest == "blank" || rest == "" {
		return ' '
	}
	return rest[0]
}

func splitForEach(rest string) (alias, source string, err error) {
	parts := strings.SplitN(rest, " in ", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("malformed FOR EACH clause %q, expected \"alias in source\"", rest)
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), nil
}
