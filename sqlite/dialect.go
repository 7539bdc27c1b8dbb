// Package sqlite provides the row-oriented backend of the engine: SQL
// dialects, a result builder rendering query contexts to parameterized SQL,
// and an executor running that SQL over database/sql.
package sqlite

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/kishultan/go-strata/core/query"
)

// Dialect implements the sqlite flavor of the dialect contract.
type Dialect struct{}

// Name identifies the dialect.
func (Dialect) Name() string { return "sqlite" }

// Paginate renders sqlite's LIMIT/OFFSET fragment. A negative limit with a
// positive offset still needs a LIMIT, which sqlite spells as -1.
func (Dialect) Paginate(offset, limit int) string {
	if limit < 0 {
		if offset <= 0 {
			return ""
		}
		return fmt.Sprintf(" LIMIT -1 OFFSET %d", offset)
	}
	if offset > 0 {
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	}
	return fmt.Sprintf(" LIMIT %d", limit)
}

// DateFormat renders a strftime call over the column.
func (d Dialect) DateFormat(column, pattern string) string {
	return fmt.Sprintf("strftime('%s', %s)", strings.ReplaceAll(pattern, "'", "''"), column)
}

// Quote wraps an identifier in double quotes, doubling embedded quotes.
func (Dialect) Quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// Unquote strips the double quotes added by Quote.
func (Dialect) Unquote(identifier string) string {
	if len(identifier) >= 2 && strings.HasPrefix(identifier, `"`) && strings.HasSuffix(identifier, `"`) {
		return strings.ReplaceAll(identifier[1:len(identifier)-1], `""`, `"`)
	}
	return identifier
}

// AnsiDialect is the conservative default used whenever a backend handle
// cannot be probed. Its fragments are valid on any reasonably standard
// engine.
type AnsiDialect struct{}

// Name identifies the dialect.
func (AnsiDialect) Name() string { return "ansi" }

// Paginate renders the standard OFFSET/FETCH form.
func (AnsiDialect) Paginate(offset, limit int) string {
	var sb strings.Builder
	if offset > 0 {
		fmt.Fprintf(&sb, " OFFSET %d ROWS", offset)
	}
	if limit >= 0 {
		fmt.Fprintf(&sb, " FETCH NEXT %d ROWS ONLY", limit)
	}
	return sb.String()
}

// DateFormat falls back to TO_CHAR, the most widely understood spelling.
func (AnsiDialect) DateFormat(column, pattern string) string {
	return fmt.Sprintf("TO_CHAR(%s, '%s')", column, strings.ReplaceAll(pattern, "'", "''"))
}

// Quote wraps an identifier in double quotes.
func (AnsiDialect) Quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

// Unquote strips the double quotes added by Quote.
func (AnsiDialect) Unquote(identifier string) string {
	return Dialect{}.Unquote(identifier)
}

// Namer lets a backend handle announce its dialect by name.
type Namer interface {
	DialectName() string
}

// ProbeDialect resolves the dialect for a backend handle: a dialect value
// passes through, a Namer or plain string is matched by name, and a *sql.DB
// is probed through its driver type. Every unrecognized or failing probe
// falls back to the ANSI default; this path never raises.
func ProbeDialect(handle any) (d query.Dialect) {
	defer func() {
		// A hostile or half-initialized handle must not break resolution.
		if r := recover(); r != nil {
			d = AnsiDialect{}
		}
	}()

	switch h := handle.(type) {
	case nil:
		return AnsiDialect{}
	case query.Dialect:
		return h
	case Namer:
		return dialectByName(h.DialectName())
	case string:
		return dialectByName(h)
	case *sql.DB:
		if h == nil {
			return AnsiDialect{}
		}
		driver := h.Driver()
		if driver == nil {
			return AnsiDialect{}
		}
		return dialectByName(reflect.TypeOf(driver).String())
	default:
		return AnsiDialect{}
	}
}

func dialectByName(name string) query.Dialect {
	if strings.Contains(strings.ToLower(name), "sqlite") {
		return Dialect{}
	}
	return AnsiDialect{}
}
