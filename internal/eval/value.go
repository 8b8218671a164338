package eval

import (
	"fmt"
	"strconv"
	"strings"
)

// toString renders a value the way a concatenation or text-context
// expression would: strings pass through, numbers use their shortest
// decimal form, booleans render "true"/"false", and nil renders empty per
// nothing_value semantics.
func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = toString(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", x)
	}
}

func toFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("eval: cannot convert %q to number", x)
		}
		return f, nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("eval: cannot convert %T to number", v)
	}
}

// isTruthy implements is_true's acceptance set: boolean true, integer 1,
// or the strings "true"/"yes" (case-insensitive).
func isTruthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x == 1
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s == "true" || s == "yes"
	default:
		return false
	}
}

// isFalsy is symmetric to isTruthy, not merely its logical negation:
// boolean false, integer 0, or the strings "false"/"no"
// (case-insensitive). Values outside both accepted sets (an arbitrary
// string, say) are neither truthy nor falsy.
func isFalsy(v any) bool {
	switch x := v.(type) {
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		return s == "false" || s == "no"
	default:
		return false
	}
}

// hasValue reports whether v carries meaningful content: not nil, not an
// empty or whitespace-only string, not an empty list/map.
func hasValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(x) != ""
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	default:
		return true
	}
}
