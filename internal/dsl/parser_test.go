package dsl

import "testing"

func TestParseSimpleField(t *testing.T) {
	src := `
JSON EXTRACTED PROPERTIES ----
control_number = album_id

MARC FIELD TEMPLATES ----
FIELD: 001
CONTENT: control_number
TERMINATE DATA WITH: NOTHING
`
	engine, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(engine.Fields) != 1 {
		t.Fatalf("got %d fields, want 1", len(engine.Fields))
	}
	f := engine.Fields[0]
	if f.Tag != "001" || f.Kind != KindFixed {
		t.Errorf("got %+v", f)
	}
	if !f.NoTerminator {
		t.Errorf("expected NOTHING terminator to suppress the default '.'")
	}
}

func TestParseSubfieldedFieldWithIndicators(t *testing.T) {
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
	engine, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	f := engine.Fields[0]
	if f.Indicator1 == nil || f.Indicator2 == nil || *f.Indicator1 != '1' || *f.Indicator2 != '0' {
		t.Errorf("got indicators %+v %+v", f.Indicator1, f.Indicator2)
	}
	if f.Kind != KindSubfielded || len(f.Subfields) != 2 {
		t.Fatalf("got %+v", f)
	}
	if f.Subfields[0].Code != "a" || f.Subfields[1].Code != "c" {
		t.Errorf("unexpected subfield order: %+v", f.Subfields)
	}
	if f.Terminator != "." {
		t.Errorf("expected default terminator '.', got %q", f.Terminator)
	}
}

func TestParseForeachWithSortAndSuffix(t *testing.T) {
	src := `
MARC FIELD TEMPLATES ----
FIELD: 505
FOR EACH: track in tracks
SORT BY: track::position
EACH-SUBFIELD: t
track::title
EACH-SUBFIELD: g
render_duration(track::duration)
EACH-SUFFIX: " --"
`
	engine, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	f := engine.Fields[0]
	if f.Kind != KindForeach || f.Foreach == nil {
		t.Fatalf("got %+v", f)
	}
	if f.Foreach.ItemAlias != "track" || f.Foreach.SourceKey != "tracks" {
		t.Errorf("got alias=%q source=%q", f.Foreach.ItemAlias, f.Foreach.SourceKey)
	}
	if len(f.Foreach.SortBy) != 1 {
		t.Errorf("got %d sort keys, want 1", len(f.Foreach.SortBy))
	}
	if len(f.Foreach.Subfields) != 2 {
		t.Errorf("got %d foreach subfields, want 2", len(f.Foreach.Subfields))
	}
	if f.Foreach.Suffix == nil {
		t.Error("expected EACH-SUFFIX to be set")
	}
}

func TestParseExportUnlessGuard(t *testing.T) {
	src := `
MARC FIELD TEMPLATES ----
FIELD: 999
CONTENT: album_title
EXPORT UNLESS: collection_code IS "test"
`
	engine, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	f := engine.Fields[0]
	if f.ExportIfNot == nil {
		t.Fatal("expected ExportIfNot to be set")
	}
}

func TestParseKnownParametersAndComments(t *testing.T) {
	src := `
# a full-line comment is dropped entirely
KNOWN PARAMETERS ----
collection_code   # inline comment stripped
label_prefix
`
	engine, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !engine.KnownParameters["collection_code"] || !engine.KnownParameters["label_prefix"] {
		t.Errorf("got %+v", engine.KnownParameters)
	}
}

func TestParseUnknownBlockHeaderErrors(t *testing.T) {
	src := "BOGUS BLOCK ----\nx\n"
	_, err := Parse(src)
	if err == nil {
		t.Fatal("expected error for unknown block header")
	}
}

func TestParseExtractorWithDefault(t *testing.T) {
	src := `
JSON EXTRACTED PROPERTIES ----
label = record_label ::DEFAULT "Unknown"
`
	engine, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(engine.Extractors) != 1 {
		t.Fatalf("got %d extractors", len(engine.Extractors))
	}
	ex := engine.Extractors[0]
	if !ex.HasDefault || ex.Default != "Unknown" {
		t.Errorf("got %+v", ex)
	}
}

func TestLeaderDefaultsAndFixedPositions(t *testing.T) {
	leader := renderLeader(nil)
	if len(leader) != 24 {
		t.Fatalf("leader length = %d, want 24", len(leader))
	}
	if leader[5] != 'n' || leader[6] != 'j' || leader[7] != 'm' || leader[17] != '1' {
		t.Errorf("defaults not applied: %q", leader)
	}
	if leader[10] != '2' || leader[11] != '2' || leader[20] != '4' || leader[21] != '5' || leader[22] != '0' || leader[23] != '0' {
		t.Errorf("fixed positions not applied: %q", leader)
	}
	for i := 0; i <= 4; i++ {
		if leader[i] != '0' {
			t.Errorf("placeholder position %d = %q, want 0", i, leader[i])
		}
	}
}

func TestLeaderOverrideCannotTouchPlaceholder(t *testing.T) {
	leader := renderLeader(map[int]byte{2: 'X', 6: 'q'})
	if leader[2] != '0' {
		t.Errorf("placeholder override leaked through: %q", leader)
	}
	if leader[6] != 'q' {
		t.Errorf("override of position 6 not applied: %q", leader)
	}
}
