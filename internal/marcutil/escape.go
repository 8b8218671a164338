// Package marcutil implements the escaping conventions used to embed
// MARCout DSL source (and arbitrary JSON text) as a single-line JSON
// string value. The cmd/marcout-util CLI is built on top of them.
package marcutil

import "strings"

// EscapeMarcout prepares DSL source text for embedding as a JSON
// string value: backslash-n, backslash-quote, backslash-t.
func EscapeMarcout(source string) string {
	r := strings.NewReplacer("\n", `\n`, `"`, `\"`, "\t", `\t`)
	return r.Replace(source)
}

// UnescapeMarcout reverses EscapeMarcout, restoring literal DSL source
// text from its JSON-embedded form.
func UnescapeMarcout(escaped string) string {
	r := strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\t`, "\t")
	return r.Replace(escaped)
}

// EscapeJSON escapes newline, double quote, single quote, and tab for
// safe embedding inside a JSON string literal.
func EscapeJSON(text string) string {
	r := strings.NewReplacer("\n", `\n`, `"`, `\"`, `'`, `\'`, "\t", `\t`)
	return r.Replace(text)
}

// UnescapeJSON reverses EscapeJSON.
func UnescapeJSON(text string) string {
	r := strings.NewReplacer(`\n`, "\n", `\"`, `"`, `\'`, `'`, `\t`, "\t")
	return r.Replace(text)
}

// EscapeNewlines replaces newlines with the literal marker "&&&" for
// line-oriented transport. The cmd/marcout-util CLI has no flag that
// calls it.
func EscapeNewlines(content string) string {
	return strings.ReplaceAll(content, "\n", "&&&")
}

// UnescapeNewlines reverses the backslash-n form back to a literal
// newline (mirrors the original utility's own, asymmetric pairing: it
// unescapes "\n" rather than "&&&").
func UnescapeNewlines(content string) string {
	return strings.ReplaceAll(content, `\n`, "\n")
}
