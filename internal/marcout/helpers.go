package marcout

import (
	"strconv"
	"strings"

	"marcout/internal/marcerr"
)

func errSourceMissing(key string) error {
	return marcerr.Evaluation("FOR EACH source %q not found in extracted variables", key)
}

func errSourceNotList(key string) error {
	return marcerr.Evaluation("FOR EACH source %q is not a list", key)
}

func parseFloatLoose(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

func toStr(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
