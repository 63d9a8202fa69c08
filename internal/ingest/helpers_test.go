package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// csvTable decodes inline CSV lines into a table.
func csvTable(t *testing.T, name string, lines ...string) *Table {
	t.Helper()
	tbl, err := ReadTable(strings.NewReader(strings.Join(lines, "\n")), name)
	require.NoError(t, err)
	return tbl
}
