package dialect_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rekord-dev/rekord/dialect"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "SELECT * FROM cats WHERE id = 3",
		dialect.Expand("SELECT * FROM cats WHERE id = {1}", 3))
	assert.Equal(t, "a b a",
		dialect.Expand("{1} {2} {1}", "a", "b"))
	assert.Equal(t, "no placeholders",
		dialect.Expand("no placeholders", "unused"))
	assert.Equal(t, "left {2} alone",
		dialect.Expand("left {2} alone"))
}

func TestEscapeValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "NULL", dialect.EscapeValue(nil))
	assert.Equal(t, "1", dialect.EscapeValue(true))
	assert.Equal(t, "0", dialect.EscapeValue(false))
	assert.Equal(t, "42", dialect.EscapeValue(42))
	assert.Equal(t, "42", dialect.EscapeValue(int64(42)))
	assert.Equal(t, "4.5", dialect.EscapeValue(4.5))
	assert.Equal(t, "'King'", dialect.EscapeValue("King"))
	assert.Equal(t, "'O''Brien'", dialect.EscapeValue("O'Brien"))
	assert.Equal(t, `'a\\b'`, dialect.EscapeValue(`a\b`))
	assert.Equal(t, "'bytes'", dialect.EscapeValue([]byte("bytes")))

	ts := time.Date(2026, 8, 26, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "'2026-08-26 10:30:00'", dialect.EscapeValue(ts))
}

func TestEscapeIdent(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "`cats`", dialect.EscapeIdent("cats", false))
	assert.Equal(t, "`db`.`cats`", dialect.EscapeIdent("db.cats", false))
	assert.Equal(t, "`db.cats`", dialect.EscapeIdent("db.cats", true))
	assert.Equal(t, "`we``ird`", dialect.EscapeIdent("we`ird", false))
}
