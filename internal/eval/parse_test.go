package eval

import (
	"testing"

	"marcout/internal/ast"
)

func TestParseExprShapes(t *testing.T) {
	node, err := ParseExpr(`album_title+" - "+artist`)
	if err != nil {
		t.Fatalf("ParseExpr error: %v", err)
	}
	outer, ok := node.(ast.Concat)
	if !ok {
		t.Fatalf("got %T, want ast.Concat", node)
	}
	if _, ok := outer.Right.(ast.Name); !ok {
		t.Errorf("rightmost operand should be Name, got %T", outer.Right)
	}
}

func TestParseExprFunctionCall(t *testing.T) {
	node, err := ParseExpr("biblio_name(artist)")
	if err != nil {
		t.Fatal(err)
	}
	call, ok := node.(ast.Call)
	if !ok {
		t.Fatalf("got %T, want ast.Call", node)
	}
	if call.Func != "biblio_name" || len(call.Args) != 1 {
		t.Errorf("got %+v", call)
	}
	if name, ok := call.Args[0].(ast.Name); !ok || name.Name != "artist" {
		t.Errorf("arg 0 = %+v", call.Args[0])
	}
}

func TestParseExprForeachItemAttribute(t *testing.T) {
	node, err := ParseExpr("track::position")
	if err != nil {
		t.Fatal(err)
	}
	name, ok := node.(ast.Name)
	if !ok || name.Name != "track::position" {
		t.Errorf("got %+v, want Name{track::position}", node)
	}
}

func TestParseExprGrouping(t *testing.T) {
	node, err := ParseExpr(`(album_title)`)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := node.(ast.Name); !ok {
		t.Errorf("got %T, want Name", node)
	}
}

func TestParseExprUnmatchedParen(t *testing.T) {
	_, err := ParseExpr("biblio_name(artist")
	if err == nil {
		t.Fatal("expected error for unterminated call")
	}
}

func TestParseExprMismatchedDelimiter(t *testing.T) {
	_, err := ParseExpr("(album_title]")
	if err == nil {
		t.Fatal("expected error for mismatched delimiter")
	}
}
