package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
	"github.com/yishak-cs/bundle-miner/internal/eclat"
)

func TestLoadHistoricalLog(t *testing.T) {
	tbl := csvTable(t, "march.csv",
		"Order ID,Order Status,Seller SKU",
		"Order ID,Order Status,Seller SKU",
		"Platform unique order ID.,Status,SKU set by seller",
		"H1,Shipped,A",
		"H1,Shipped,B",
		"H1,Shipped,A",
		"H2,Shipped,None",
		"H3,Shipped,C",
		",Shipped,D",
	)

	h, stats, err := NewIngester(nil).LoadHistoricalLog(tbl)
	require.NoError(t, err)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, eclat.Itemset{"A", "B"}, h.Orders()[0].Items)
	assert.Equal(t, 4, stats.Processed)
	assert.Equal(t, 2, stats.Skipped)
}

func TestLoadHistoricalLog_FallbackColumn(t *testing.T) {
	tbl := csvTable(t, "march.csv",
		"c0,c1,c2,c3,c4,c5,c6",
		"H1,,,,,,A",
		"H1,,,,,,B",
	)
	h, _, err := NewIngester(nil).LoadHistoricalLog(tbl)
	require.NoError(t, err)
	assert.Equal(t, 1, h.CountSupersets(eclat.Itemset{"A", "B"}))
}

func TestLoadHistoricalLog_NoSKUColumn(t *testing.T) {
	_, _, err := NewIngester(nil).LoadHistoricalLog(csvTable(t, "march.csv", "Order ID,Item", "H1,A"))
	var shape *apierr.InputShapeError
	assert.True(t, errors.As(err, &shape))
}
