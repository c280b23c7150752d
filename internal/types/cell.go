package types

import (
	"fmt"
	"strings"
)

func toCellStringSlow(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

// ToCellString renders a value scanned from *sql.Rows into the string form
// written to a CSV cell. nil becomes the empty string; []byte (the form the
// driver uses for text-ish columns) is converted directly without a
// round-trip through fmt.
func ToCellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case bool:
		if val {
			return "t"
		}
		return "f"
	default:
		return toCellStringSlow(val)
	}
}

// SanitizeCell replaces each line break (\r\n, \n or \r) in a cell value
// with a single space so a single CSV row never spans more than one
// physical line.
func SanitizeCell(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	r := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
	return r.Replace(s)
}
