package schema

import (
	"strings"
	"unicode"
)

// NameTransform converts a Go identifier into a physical database name.
// The default transform maps CamelCase to snake_case.
type NameTransform func(string) string

// SnakeCase converts a CamelCase identifier to snake_case. Consecutive upper
// case runs are kept together, so "UserID" becomes "user_id" and
// "HTTPStatus" becomes "http_status".
func SnakeCase(name string) string {
	var sb strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// columnStrategy is one step in the ordered column-name derivation chain.
// It receives the Go field name and the set of candidate column names already
// known for the entity, and reports the matching column name if it has one.
type columnStrategy func(field string, candidates []string) (string, bool)

// exactMatch matches a field against a column of the identical name.
func exactMatch(field string, candidates []string) (string, bool) {
	for _, c := range candidates {
		if c == field {
			return c, true
		}
	}
	return "", false
}

// transformMatch matches a field against a column named by the configured
// name transform.
func transformMatch(transform NameTransform) columnStrategy {
	return func(field string, candidates []string) (string, bool) {
		want := transform(field)
		for _, c := range candidates {
			if c == want {
				return c, true
			}
		}
		return "", false
	}
}

// caseInsensitiveMatch matches a field against a column ignoring case and
// underscores. It is the last resort of the strategy chain.
func caseInsensitiveMatch(field string, candidates []string) (string, bool) {
	want := strings.ToLower(strings.ReplaceAll(field, "_", ""))
	for _, c := range candidates {
		got := strings.ToLower(strings.ReplaceAll(c, "_", ""))
		if got == want {
			return c, true
		}
	}
	return "", false
}
