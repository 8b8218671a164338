package marcout

import (
	"encoding/json"

	"marcout/internal/iso2709"
	"marcout/internal/marcerr"
	"marcout/internal/marcfield"
	"marcout/internal/marctext"
	"marcout/internal/metrics"
)

// ExportResult is one export run's outcome: one rendering per input
// record (in request order) plus that record's collected diagnostics.
type ExportResult struct {
	Records []RecordOutput
}

// RecordOutput pairs a record's serialized form with its non-fatal
// evaluation diagnostics (§7 category 3).
type RecordOutput struct {
	Text        string // populated for marc-text
	Binary      []byte // populated for iso2709
	Fields      []marcfield.Field
	Diagnostics []string
}

// Export runs the full request pipeline: the Engine is parsed once by
// ResolveWorkset, then each record is evaluated and handed to the
// requested serializer. Per-record evaluation failures are recovered
// (§5, §7 category 3); only workset/codec setup failures are fatal for
// the whole request.
func Export(ws *ExportWorkset) (*ExportResult, error) {
	if ws.Serialization == SerializationMarcXML {
		return nil, marcerr.Workset("marc-xml serialization is not implemented")
	}

	out := &ExportResult{Records: make([]RecordOutput, 0, len(ws.Records))}

	m := metrics.Get()

	for _, record := range ws.Records {
		result := EvaluateRecord(ws.Engine, record, ws.Params)
		ro := RecordOutput{Fields: result.Fields, Diagnostics: result.Diagnostics}

		if m != nil {
			m.RecordsProcessed.Inc()
			for range result.Diagnostics {
				m.FieldsSkipped.WithLabelValues("evaluation").Inc()
			}
		}

		switch ws.Serialization {
		case SerializationMarcText:
			ro.Text = marctext.SerializeRecord(result.Fields)

		case SerializationRawDatastructure:
			// A debug echo of the internal populated-field structures,
			// not a MARC rendering — useful for inspecting what a
			// template produced before serialization.
			dump, err := json.MarshalIndent(result.Fields, "", "  ")
			if err != nil {
				ro.Diagnostics = append(ro.Diagnostics, err.Error())
			} else {
				ro.Text = string(dump)
			}

		case SerializationISO2709:
			data, err := iso2709.Encode(result.Fields)
			if err != nil {
				ro.Diagnostics = append(ro.Diagnostics, err.Error())
				if m != nil {
					m.CodecErrors.Inc()
				}
				out.Records = append(out.Records, ro)
				continue
			}
			ro.Binary = data
		}

		out.Records = append(out.Records, ro)
	}

	return out, nil
}
