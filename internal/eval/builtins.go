package eval

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"

	"marcout/internal/marcerr"
)

type builtinFunc func(args []any) (any, error)

// builtins is the §4.3 table. Each entry takes already-evaluated
// arguments and returns a concrete value or an evaluation error.
var builtins = map[string]builtinFunc{
	"is_true":               biIsTrue,
	"is_false":              biIsFalse,
	"has_value":             biHasValue,
	"has_no_value":          biHasNoValue,
	"starts_with":           biStartsWith,
	"contains":              biContains,
	"normalize_date":        biNormalizeDate,
	"biblio_name":           biBiblioName,
	"release_year":          biReleaseYear,
	"release_decade":        biReleaseDecade,
	"pretty_comma_list":     biPrettyCommaList,
	"zeropad":               biZeropad,
	"h_m_s":                 biHMS,
	"render_duration":       biRenderDuration,
	"total_play_length":     biTotalPlayLength,
	"compute_control_number": biControlNumber,
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func biIsTrue(args []any) (any, error) { return isTruthy(arg(args, 0)), nil }
func biIsFalse(args []any) (any, error) { return isFalsy(arg(args, 0)), nil }
func biHasValue(args []any) (any, error) { return hasValue(arg(args, 0)), nil }
func biHasNoValue(args []any) (any, error) { return !hasValue(arg(args, 0)), nil }

func biStartsWith(args []any) (any, error) {
	return strings.HasPrefix(toString(arg(args, 0)), toString(arg(args, 1))), nil
}

func biContains(args []any) (any, error) {
	return strings.Contains(toString(arg(args, 0)), toString(arg(args, 1))), nil
}

// normalize_date keeps only the portion before a "T" separator, the
// common ISO-8601-with-time → date-only reduction.
func biNormalizeDate(args []any) (any, error) {
	s := toString(arg(args, 0))
	if idx := strings.IndexByte(s, 'T'); idx >= 0 {
		return s[:idx], nil
	}
	return s, nil
}

// biblio_name reorders "First Last" to "Last, First" when no comma is
// already present — a no-op for names already in catalog form.
func biBiblioName(args []any) (any, error) {
	s := toString(arg(args, 0))
	if strings.Contains(s, ",") {
		return s, nil
	}
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return s, nil
	}
	last := fields[len(fields)-1]
	first := strings.Join(fields[:len(fields)-1], " ")
	return last + ", " + first, nil
}

func biReleaseYear(args []any) (any, error) {
	s := toString(arg(args, 0))
	if len(s) < 4 {
		return "", marcerr.Evaluation("release_year: %q too short for a year", s)
	}
	return s[:4], nil
}

// release_decade computes the decade literal ("2011-2020") from integer
// arithmetic on the date's first three year digits.
func biReleaseDecade(args []any) (any, error) {
	s := toString(arg(args, 0))
	if len(s) < 4 {
		return "", marcerr.Evaluation("release_decade: %q too short for a year", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return "", marcerr.Evaluation("release_decade: %q is not a numeric year", s[:4])
	}
	start := (year/10)*10 + 1
	return fmt.Sprintf("%d-%d", start, start+9), nil
}

// pretty_comma_list joins a comma-separated string with "and", applying
// the Oxford comma only when requested and there are 3+ items.
func biPrettyCommaList(args []any) (any, error) {
	raw := toString(arg(args, 0))
	oxford := len(args) > 1 && isTruthy(args[1])

	var items []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	switch len(items) {
	case 0:
		return "", nil
	case 1:
		return items[0], nil
	case 2:
		return items[0] + " and " + items[1], nil
	default:
		head := strings.Join(items[:len(items)-1], ", ")
		if oxford {
			return head + ", and " + items[len(items)-1], nil
		}
		return head + " and " + items[len(items)-1], nil
	}
}

func biZeropad(args []any) (any, error) {
	s := toString(arg(args, 0))
	n, err := toFloat(arg(args, 1))
	if err != nil {
		return "", marcerr.Evaluation("zeropad: %v", err)
	}
	width := int(n)
	for len(s) < width {
		s = "0" + s
	}
	return s, nil
}

// h_m_s formats seconds as h:mm:ss, suppressing the hours component
// entirely when it is zero. Rounding is round-half-to-even to the
// nearest integer second, per the duration semantics the source relies on.
func h_m_s(seconds float64) string {
	total := int64(math.RoundToEven(seconds))
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	sec := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%d:%02d", m, sec)
}

func biHMS(args []any) (any, error) {
	sec, err := toFloat(arg(args, 0))
	if err != nil {
		return "", marcerr.Evaluation("h_m_s: %v", err)
	}
	return h_m_s(sec), nil
}

func biRenderDuration(args []any) (any, error) {
	sec, err := toFloat(arg(args, 0))
	if err != nil {
		return "", marcerr.Evaluation("render_duration: %v", err)
	}
	return "(" + h_m_s(sec) + ")", nil
}

// total_play_length sums the "duration" attribute over a list of track
// items and formats it the unwrapped h_m_s way.
func biTotalPlayLength(args []any) (any, error) {
	tracks, ok := arg(args, 0).([]any)
	if !ok {
		return "", marcerr.Evaluation("total_play_length: expected a list argument")
	}
	var sum float64
	for _, t := range tracks {
		item, ok := t.(map[string]any)
		if !ok {
			continue
		}
		d, err := toFloat(item["duration"])
		if err != nil {
			continue
		}
		sum += d
	}
	return h_m_s(sum), nil
}

// compute_control_number SHA-1 hashes album_id's UTF-8 bytes and builds
// "<collection>_<last 7 hex digits>a".
func biControlNumber(args []any) (any, error) {
	albumID := toString(arg(args, 0))
	collection := toString(arg(args, 1))
	sum := sha1.Sum([]byte(albumID))
	hexDigest := hex.EncodeToString(sum[:])
	tail := hexDigest
	if len(tail) > 7 {
		tail = tail[len(tail)-7:]
	}
	return strings.ToLower(collection) + "_" + tail + "a", nil
}
