// Command marcout-util wraps internal/marcutil's escape helpers into
// the CLI named (but left unspecified) by spec.md §6/§210: editing a
// DSL export definition is much easier as a standalone .marcout file
// than as one escaped line inside a JSON request body, so this tool
// moves source text between the two forms.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"marcout/internal/marcutil"
)

func main() {
	extract := flag.String("extract-marcout", "", "read marcout_sourcecode from the given JSON file and print the unescaped DSL source")
	escape := flag.String("escape-marcout", "", "read a standalone .marcout file and print its JSON-escaped form")
	unescape := flag.String("unescape-marcout", "", "read an escaped marcout_sourcecode string from the given file and print the unescaped DSL source")
	updateJSON := flag.String("update-json", "", "JSON file whose marcout_sourcecode field should be replaced")
	fromFile := flag.String("from", "", "standalone .marcout file providing the new source for --update-json")
	flag.Parse()

	switch {
	case *extract != "":
		runExtract(*extract)
	case *escape != "":
		runEscape(*escape)
	case *unescape != "":
		runUnescape(*unescape)
	case *updateJSON != "":
		if *fromFile == "" {
			fmt.Fprintln(os.Stderr, "--update-json requires --from <path-to-.marcout-file>")
			os.Exit(1)
		}
		runUpdateJSON(*updateJSON, *fromFile)
	default:
		flag.Usage()
		os.Exit(1)
	}
}

func readJSONDoc(path string) (map[string]interface{}, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func runExtract(path string) {
	doc, err := readJSONDoc(path)
	if err != nil {
		fail(err)
	}
	escaped, ok := doc["marcout_sourcecode"].(string)
	if !ok {
		fail(fmt.Errorf("%s has no string marcout_sourcecode field", path))
	}
	fmt.Print(marcutil.UnescapeMarcout(escaped))
}

func runEscape(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fail(err)
	}
	fmt.Print(marcutil.EscapeMarcout(string(raw)))
}

func runUnescape(path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		fail(err)
	}
	fmt.Print(marcutil.UnescapeMarcout(string(raw)))
}

func runUpdateJSON(jsonPath, sourcePath string) {
	doc, err := readJSONDoc(jsonPath)
	if err != nil {
		fail(err)
	}
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		fail(err)
	}
	doc["marcout_sourcecode"] = marcutil.EscapeMarcout(string(source))

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fail(err)
	}
	if err := os.WriteFile(jsonPath, out, 0o644); err != nil {
		fail(err)
	}
	fmt.Printf("updated %s with source from %s\n", jsonPath, sourcePath)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "marcout-util:", err)
	os.Exit(1)
}
