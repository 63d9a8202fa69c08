package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/bundle-miner/internal/eclat"
	"github.com/yishak-cs/bundle-miner/internal/models"
)

func readBack(t *testing.T, b []byte) [][]string {
	t.Helper()
	rows, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestWriteRulesCSV_Plain(t *testing.T) {
	rec := models.NewRuleRecord(eclat.NewAssociationRule(eclat.Itemset{"X"}, eclat.Itemset{"Y"}, 3, 3, 2, 5))

	var buf bytes.Buffer
	require.NoError(t, WriteRulesCSV(&buf, []models.RuleRecord{rec}))

	rows := readBack(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Equal(t, baseHeader, rows[0])
	assert.Equal(t, []string{"2", "X", "Y", "X -> Y", "3", "3", "2", "0.6", "0.6", "0.4", "0.6667", "1.1111", "0.36"}, rows[1])
}

func TestWriteRulesCSV_Enhanced(t *testing.T) {
	base := eclat.NewAssociationRule(eclat.Itemset{"A"}, eclat.Itemset{"B"}, 10, 12, 9, 20)
	rec := models.NewEnhancedRuleRecord(eclat.EnhancedRule{
		AssociationRule:             base,
		Enhanced:                    true,
		AddedItem:                   "U",
		HistoricalOccurrenceCount:   3,
		HistoricalTotalTransactions: 10,
		EnhancedSupport:             0.3,
		CombinationID:               eclat.Itemset{"A", "B", "U"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteRulesCSV(&buf, []models.RuleRecord{rec}))

	rows := readBack(t, buf.Bytes())
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(baseHeader)+len(enhancedHeader))
	assert.Equal(t, []string{"U", "A + B + U", "3", "10", "0.3"}, rows[1][len(baseHeader):])
}

func TestWriteRulesCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRulesCSV(&buf, nil))
	assert.Len(t, readBack(t, buf.Bytes()), 1)
}
