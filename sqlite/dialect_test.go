package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type namedHandle struct{ name string }

func (h namedHandle) DialectName() string { return h.name }

func TestProbeDialect(t *testing.T) {
	cases := []struct {
		name   string
		handle any
		want   string
	}{
		{"nil handle", nil, "ansi"},
		{"dialect passthrough", Dialect{}, "sqlite"},
		{"namer sqlite", namedHandle{"sqlite3"}, "sqlite"},
		{"namer unknown", namedHandle{"postgres"}, "ansi"},
		{"driver string", "sqlite", "sqlite"},
		{"unknown string", "mysql", "ansi"},
		{"unrecognized type", 42, "ansi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProbeDialect(tc.handle).Name())
		})
	}
}

func TestProbeNilTypedNamerFallsBack(t *testing.T) {
	// A typed nil Namer panics inside DialectName; the probe must still
	// resolve to the ANSI default instead of raising.
	var h *panickyNamer
	assert.Equal(t, "ansi", ProbeDialect(h).Name())
}

type panickyNamer struct{ name string }

func (h *panickyNamer) DialectName() string { return h.name }

func TestSqlitePaginate(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, " LIMIT 10", d.Paginate(0, 10))
	assert.Equal(t, " LIMIT 10 OFFSET 5", d.Paginate(5, 10))
	assert.Equal(t, " LIMIT -1 OFFSET 5", d.Paginate(5, -1), "unbounded limit with offset needs sqlite's -1 spelling")
	assert.Equal(t, "", d.Paginate(0, -1))
}

func TestAnsiPaginate(t *testing.T) {
	d := AnsiDialect{}
	assert.Equal(t, " OFFSET 5 ROWS FETCH NEXT 10 ROWS ONLY", d.Paginate(5, 10))
	assert.Equal(t, " FETCH NEXT 10 ROWS ONLY", d.Paginate(0, 10))
	assert.Equal(t, " OFFSET 5 ROWS", d.Paginate(5, -1))
}

func TestDateFormat(t *testing.T) {
	assert.Equal(t, "strftime('%Y-%m', created_at)", Dialect{}.DateFormat("created_at", "%Y-%m"))
	assert.Equal(t, "TO_CHAR(created_at, 'YYYY-MM')", AnsiDialect{}.DateFormat("created_at", "YYYY-MM"))
}

func TestQuoteUnquote(t *testing.T) {
	d := Dialect{}
	assert.Equal(t, `"order"`, d.Quote("order"))
	assert.Equal(t, `"a""b"`, d.Quote(`a"b`))
	assert.Equal(t, "order", d.Unquote(`"order"`))
	assert.Equal(t, `a"b`, d.Unquote(`"a""b"`))
	assert.Equal(t, "plain", d.Unquote("plain"))
}
