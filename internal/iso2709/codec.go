// Package iso2709 encodes and decodes MARC 21 records in the binary
// ISO 2709 interchange format (§4.4): leader, directory, and
// field/subfield delimiters 0x1F / 0x1E / 0x1D.
//
// Directory offsets are relative to the start of the field-data region,
// and that region begins WITH the field-terminator byte that also
// closes the directory — each directory entry's slice therefore starts
// with 0x1E, its own trailing terminator doubling as the next field's
// (or the record's own closing terminator for the last field). This
// matches the decode description in §4.4 ("the field substring... must
// start with 0x1E") and the original implementation's directory
// indexing in raw_iso2709_converter.py, which addresses field content
// the same way.
package iso2709

import (
	"strconv"
	"strings"

	"marcout/internal/marcerr"
	"marcout/internal/marcfield"
)

const (
	subfieldDelim = 0x1F
	fieldDelim    = 0x1E
	recordTerm    = 0x1D
)

// Encode serializes a record's populated fields (an optional leading
// KindLeader entry plus data fields, in order) to ISO 2709 bytes.
func Encode(fields []marcfield.Field) ([]byte, error) {
	leader := "x0000000000x0000000000xx"
	dataFields := fields
	if len(fields) > 0 && fields[0].Kind == marcfield.KindLeader {
		leader = fields[0].Content
		dataFields = fields[1:]
	}
	if len(leader) != 24 {
		return nil, marcerr.Codec(-1, "LDR", "leader must be exactly 24 characters, got %d", len(leader))
	}

	contents := make([][]byte, len(dataFields))
	for i, f := range dataFields {
		contents[i] = encodePayload(f)
	}

	var directory strings.Builder
	offset := 0
	for i, f := range dataFields {
		length := 1 + len(contents[i])
		directory.WriteString(padTag(f.Tag))
		directory.WriteString(zeroPad(length, 4))
		directory.WriteString(zeroPad(offset, 5))
		offset += length
	}

	var fieldsRegion strings.Builder
	for _, c := range contents {
		fieldsRegion.WriteByte(fieldDelim)
		fieldsRegion.Write(c)
	}
	fieldsRegion.WriteByte(fieldDelim) // closes the last field

	baseAddress := 24 + directory.Len()
	totalLength := baseAddress + fieldsRegion.Len() + 1 // + record terminator

	leaderBytes := []byte(leader)
	copy(leaderBytes[0:5], zeroPad(totalLength, 5))
	copy(leaderBytes[12:17], zeroPad(baseAddress, 5))

	var out strings.Builder
	out.Write(leaderBytes)
	out.WriteString(directory.String())
	out.WriteString(fieldsRegion.String())
	out.WriteByte(recordTerm)

	return []byte(out.String()), nil
}

// Decode parses an ISO 2709 byte stream back to the populated-field
// shape, with a synthetic KindLeader entry prepended carrying the
// leader (§4.4 Decode).
func Decode(data []byte) ([]marcfield.Field, error) {
	if len(data) < 24 {
		return nil, marcerr.Codec(0, "LDR", "record shorter than the 24-byte leader")
	}
	leader := string(data[0:24])

	firstDelim := -1
	for i := 24; i < len(data); i++ {
		if data[i] == fieldDelim {
			firstDelim = i
			break
		}
	}
	if firstDelim < 0 {
		return nil, marcerr.Codec(24, "", "no field terminator found after leader")
	}

	directoryStr := string(data[24:firstDelim])
	if len(directoryStr)%12 != 0 {
		return nil, marcerr.Codec(24, "", "directory length %d is not a multiple of 12", len(directoryStr))
	}
	for _, c := range directoryStr {
		if c < '0' || c > '9' {
			return nil, marcerr.Codec(24, "", "directory contains non-digit byte %q", c)
		}
	}

	if data[len(data)-1] != recordTerm {
		return nil, marcerr.Codec(len(data)-1, "", "record does not end with the record terminator")
	}
	fieldsRegion := data[firstDelim : len(data)-1]

	out := []marcfield.Field{{Tag: "LDR", Kind: marcfield.KindLeader, Content: leader}}

	numEntries := len(directoryStr) / 12
	for i := 0; i < numEntries; i++ {
		entry := directoryStr[i*12 : i*12+12]
		tag := entry[0:3]
		length, err := strconv.Atoi(entry[3:7])
		if err != nil {
			return nil, marcerr.Codec(24+i*12, tag, "directory entry length is not numeric")
		}
		start, err := strconv.Atoi(entry[7:12])
		if err != nil {
			return nil, marcerr.Codec(24+i*12, tag, "directory entry offset is not numeric")
		}
		if start < 0 || start+length > len(fieldsRegion) {
			return nil, marcerr.Codec(start, tag, "directory entry points past the field region")
		}
		slice := fieldsRegion[start : start+length]
		if len(slice) == 0 || slice[0] != fieldDelim {
			return nil, marcerr.Codec(start, tag, "field payload does not begin with the field terminator")
		}
		field, err := decodeField(tag, slice[1:])
		if err != nil {
			return nil, err
		}
		out = append(out, field)
	}

	return out, nil
}

func decodeField(tag string, content []byte) (marcfield.Field, error) {
	f := marcfield.Field{Tag: tag, NoTerminator: true}

	chunks := splitByte(content, subfieldDelim)
	if len(chunks) == 1 {
		f.Kind = marcfield.KindContent
		f.Content = string(chunks[0])
		return f, nil
	}

	first := chunks[0]
	if len(first) >= 1 {
		b := first[0]
		f.Ind1 = &b
	}
	if len(first) >= 2 {
		b := first[1]
		f.Ind2 = &b
	}

	f.Kind = marcfield.KindSubfielded
	for _, chunk := range chunks[1:] {
		if len(chunk) == 0 {
			continue
		}
		code := string(chunk[0])
		value := string(chunk[1:])
		f.Subfields = append(f.Subfields, marcfield.Subfield{Code: code, Value: value})
	}
	return f, nil
}

func splitByte(data []byte, sep byte) [][]byte {
	var out [][]byte
	start := 0
	for i, b := range data {
		if b == sep {
			out = append(out, data[start:i])
			start = i + 1
		}
	}
	out = append(out, data[start:])
	return out
}

// encodePayload builds one field's content bytes: indicators (if
// declared), body, and textual terminator — everything except the
// structural 0x1E/0x1D delimiters, which the caller assembles.
func encodePayload(f marcfield.Field) []byte {
	var buf []byte

	if f.Ind1 != nil || f.Ind2 != nil {
		buf = append(buf, indicatorByte(f.Ind1))
		buf = append(buf, indicatorByte(f.Ind2))
	}

	switch f.Kind {
	case marcfield.KindContent:
		buf = append(buf, []byte(f.Content)...)

	case marcfield.KindSubfielded:
		for _, s := range f.Subfields {
			buf = append(buf, subfieldDelim)
			buf = append(buf, []byte(s.Code)...)
			buf = append(buf, []byte(s.Value)...)
		}

	case marcfield.KindForeach:
		for _, g := range f.Groups {
			if g.Prefix != nil {
				buf = append(buf, []byte(*g.Prefix)...)
			}
			for _, s := range g.Items {
				buf = append(buf, subfieldDelim)
				buf = append(buf, []byte(s.Code)...)
				buf = append(buf, []byte(s.Value)...)
			}
			if g.Suffix != nil {
				buf = append(buf, []byte(*g.Suffix)...)
			}
			if g.Demarc != nil {
				buf = append(buf, []byte(*g.Demarc)...)
			}
		}
	}

	if !f.NoTerminator {
		buf = append(buf, []byte(f.Terminator)...)
	}
	return buf
}

// indicatorByte substitutes the literal backslash for a blank
// indicator, matching the reference field-content renderer, which uses
// the same escape in both text and binary serializations.
func indicatorByte(ind *byte) byte {
	if ind == nil || *ind == ' ' {
		return '\\'
	}
	return *ind
}

func padTag(tag string) string {
	for len(tag) < 3 {
		tag = tag + " "
	}
	return tag[:3]
}

func zeroPad(n, width int) string {
	s := strconv.Itoa(n)
	for len(s) < width {
		s = "0" + s
	}
	return s
}
