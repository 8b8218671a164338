// Package marctext renders populated MARC fields in human-readable
// MARC-text form (§4.5): "=TAG  ind1ind2body terminator".
package marctext

import (
	"strings"

	"marcout/internal/marcfield"
)

// SerializeRecord renders one record's populated fields as MARC-text,
// LF line endings, no trailing whitespace, followed by exactly one
// blank line (§6 byte-exact outputs).
func SerializeRecord(fields []marcfield.Field) string {
	var sb strings.Builder
	for _, f := range fields {
		sb.WriteString(serializeField(f))
		sb.WriteByte('\n')
	}
	sb.WriteByte('\n')
	return sb.String()
}

func serializeField(f marcfield.Field) string {
	var sb strings.Builder
	sb.WriteByte('=')
	sb.WriteString(f.Tag)
	sb.WriteString("  ")

	if f.Kind == marcfield.KindLeader {
		sb.WriteString(f.Content)
		return sb.String()
	}

	if f.Ind1 != nil || f.Ind2 != nil {
		sb.WriteByte(indicatorGlyph(f.Ind1))
		sb.WriteByte(indicatorGlyph(f.Ind2))
	}
	sb.WriteString(fieldBody(f))

	if !f.NoTerminator {
		sb.WriteString(f.Terminator)
	}
	return sb.String()
}

// indicatorGlyph renders a blank indicator (space, or an unset pointer)
// as the MARC-text backslash escape.
func indicatorGlyph(ind *byte) byte {
	if ind == nil || *ind == ' ' {
		return '\\'
	}
	return *ind
}

func fieldBody(f marcfield.Field) string {
	switch f.Kind {
	case marcfield.KindContent:
		return f.Content

	case marcfield.KindSubfielded:
		var sb strings.Builder
		for _, s := range f.Subfields {
			sb.WriteByte('$')
			sb.WriteString(s.Code)
			sb.WriteString(s.Value)
		}
		return sb.String()

	case marcfield.KindForeach:
		var sb strings.Builder
		for _, g := range f.Groups {
			if g.Prefix != nil {
				sb.WriteString(*g.Prefix)
			}
			for _, s := range g.Items {
				sb.WriteByte('$')
				sb.WriteString(s.Code)
				sb.WriteString(s.Value)
			}
			if g.Suffix != nil {
				sb.WriteString(*g.Suffix)
			}
			if g.Demarc != nil {
				sb.WriteString(*g.Demarc)
			}
		}
		return sb.String()

	default:
		return ""
	}
}
