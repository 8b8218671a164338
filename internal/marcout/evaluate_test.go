package marcout

import (
	"strings"
	"testing"

	"marcout/internal/dsl"
	"marcout/internal/marctext"
)

// TestEvaluateSimpleField is S1.
func TestEvaluateSimpleField(t *testing.T) {
	src := `
JSON EXTRACTED PROPERTIES ----
control_number = compute_control_number(album_id, collection)

MARC FIELD TEMPLATES ----
FIELD: 001
CONTENT: control_number
TERMINATE DATA WITH: NOTHING
`
	engine, err := dsl.Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	record := map[string]any{"album_id": "mischa-lively-album"}
	params := map[string]any{"collection": "NBB"}
	result := EvaluateRecord(engine, record, params)
	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
	}
	text := marctext.SerializeRecord(result.Fields)
	if !strings.HasPrefix(text, "=001  nbb_") {
		t.Errorf("got %q", text)
	}
}

// TestEvaluateSubfieldedField is S2.
func TestEvaluateSubfieldedField(t *testing.T) {
	src := `
MARC FIELD TEMPLATES ----
FIELD: 245
INDC1: 1
INDC2: 0
SUBFIELD: a
album_title
SUBFIELD: c
biblio_name(artist)
`
	engine, err := dsl.Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	record := map[string]any{"album_title": "Pillow", "artist": "Mischa Lively"}
	result := EvaluateRecord(engine, record, nil)
	text := marctext.SerializeRecord(result.Fields)
	want := "=245  10$aPillow$cLively, Mischa.\n\n"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

// TestEvaluateForeachWithSort is S3: tracks arrive out of order and must
// be sorted by position before rendering.
func TestEvaluateForeachWithSort(t *testing.T) {
	src := `
MARC FIELD TEMPLATES ----
FIELD: 505
FOR EACH: track in tracks
SORT BY: track::position
EACH-SUBFIELD: t
track::title
EACH-SUFFIX: " --"
`
	engine, err := dsl.Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	record := map[string]any{
		"tracks": []any{
			map[string]any{"position": 2.0, "title": "Second"},
			map[string]any{"position": 1.0, "title": "First"},
			map[string]any{"position": 3.0, "title": "Third"},
		},
	}
	result := EvaluateRecord(engine, record, nil)
	if len(result.Diagnostics) != 0 {
		t.Fatalf("unexpected diagnostics: %v", result.Diagnostics)
	}
	text := marctext.SerializeRecord(result.Fields)
	want := "=505  $tFirst --$tSecond --$tThird --.\n\n"
	if text != want {
		t.Errorf("got %q, want %q", text, want)
	}
}

// TestEvaluateExportUnless is S4.
func TestEvaluateExportUnless(t *testing.T) {
	src := `
MARC FIELD TEMPLATES ----
FIELD: 999
CONTENT: album_title
EXPORT UNLESS: collection_code IS "test"
`
	engine, err := dsl.Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	skipped := EvaluateRecord(engine, map[string]any{"album_title": "x", "collection_code": "test"}, nil)
	if len(skipped.Fields) != 0 {
		t.Errorf("expected field skipped when collection_code is test, got %+v", skipped.Fields)
	}

	present := EvaluateRecord(engine, map[string]any{"album_title": "x", "collection_code": "prod"}, nil)
	if len(present.Fields) != 1 {
		t.Errorf("expected field present when collection_code is not test, got %+v", present.Fields)
	}
}

func TestEvaluateExtractorDefaultFallback(t *testing.T) {
	src := `
JSON EXTRACTED PROPERTIES ----
label = missing_field ::DEFAULT "Unknown"

MARC FIELD TEMPLATES ----
FIELD: 260
CONTENT: label
`
	engine, err := dsl.Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	result := EvaluateRecord(engine, map[string]any{}, nil)
	if len(result.Fields) != 1 || result.Fields[0].Content != "Unknown" {
		t.Errorf("got %+v", result)
	}
}
