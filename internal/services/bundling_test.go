package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
	"github.com/yishak-cs/bundle-miner/internal/eclat"
	"github.com/yishak-cs/bundle-miner/internal/ingest"
	"github.com/yishak-cs/bundle-miner/internal/models"
)

type fakeHistory struct {
	log   *eclat.HistoricalLog
	err   error
	calls int
	tag   string
}

func (f *fakeHistory) LoadOrderHistory(_ context.Context, source string) (*eclat.HistoricalLog, error) {
	f.calls++
	f.tag = source
	return f.log, f.err
}

type fakePublisher struct {
	analysisID string
	rules      []eclat.AssociationRule
	err        error
}

func (f *fakePublisher) PublishRules(_ context.Context, id string, rules []eclat.AssociationRule) (int, error) {
	f.analysisID = id
	f.rules = rules
	return len(rules), f.err
}

func table(t *testing.T, name string, lines ...string) *ingest.Table {
	t.Helper()
	tbl, err := ingest.ReadTable(strings.NewReader(strings.Join(lines, "\n")), name)
	require.NoError(t, err)
	return tbl
}

// orders holds five orders: {X,Y} twice, {X,Z}, {Y,Z}, {Z}.
func orders(t *testing.T) *ingest.Table {
	return table(t, "orders.csv",
		"Order ID,Seller SKU",
		"1,X", "1,Y",
		"2,X", "2,Y",
		"3,X", "3,Z",
		"4,Y", "4,Z",
		"5,Z",
	)
}

func params() models.Params {
	return models.Params{MinSupport: 0.2, MinConfidence: 0.5, MinLift: 1.0, MinSupportCount: 1}
}

func newService(history HistorySource, publisher RulePublisher, publish bool) *BundlingService {
	svc := NewBundlingService(nil, Config{Publish: publish, HistoryTag: "march"}, history, publisher)
	svc.newID = func() string { return "analysis-1" }
	return svc
}

func TestRunAnalysis_PlainRules(t *testing.T) {
	svc := newService(nil, nil, false)

	res, err := svc.RunAnalysis(context.Background(), AnalysisRequest{Transactions: orders(t), Params: params()})
	require.NoError(t, err)

	require.Len(t, res.Rules, 1, "X -> Y and Y -> X collapse into one rule")
	r := res.Rules[0]
	assert.Equal(t, []string{"X", "Y"}, r.ItemsetID)
	assert.Equal(t, 0.4, r.ItemsetSupport)
	assert.Equal(t, 0.6667, r.Confidence)
	assert.Equal(t, 1.1111, r.Lift)

	sum := res.Summary
	assert.Equal(t, "analysis-1", sum.ID)
	assert.Equal(t, 5, sum.TotalTransactions)
	assert.Equal(t, 3, sum.UniqueProducts)
	assert.Equal(t, 2, sum.MaxItemsetLevel)
	assert.Equal(t, map[int]int{1: 3, 2: 3}, sum.LevelCounts)
	assert.Equal(t, 1, sum.OriginalRulesCount)
	assert.Equal(t, 1, sum.Dedup.Removed)
	assert.Zero(t, sum.EnhancedRulesCount)
	assert.Empty(t, res.EnhancedRules)
	assert.Len(t, sum.TopProducts, 3)
	assert.False(t, sum.Published)
}

func TestRunAnalysis_EnhancesWithUploadedHistory(t *testing.T) {
	catalog := table(t, "catalog.csv", "SKU Penjual", "X", "Y", "Z", "U")
	historical := table(t, "march.csv",
		"Order ID,Seller SKU",
		"H1,X", "H1,Y", "H1,U",
		"H2,X", "H2,Y", "H2,U",
		"H3,X", "H3,Y",
		"H4,U",
	)
	graph := &fakeHistory{}
	svc := newService(graph, nil, false)

	res, err := svc.RunAnalysis(context.Background(), AnalysisRequest{
		Transactions: orders(t),
		Catalog:      catalog,
		Historical:   historical,
		Params:       params(),
	})
	require.NoError(t, err)

	require.NotNil(t, res.ProductAnalysis)
	assert.Equal(t, []string{"U"}, res.ProductAnalysis.UnsoldSKUs())
	assert.Zero(t, graph.calls, "uploaded history wins over the graph")

	sum := res.Summary
	assert.True(t, sum.HasUnsoldProducts)
	assert.True(t, sum.HasHistorical)
	assert.Equal(t, 1, sum.EnhancedRulesCount)
	require.Len(t, res.EnhancedRules, 1)
	e := res.EnhancedRules[0]
	assert.Equal(t, "X + Y + U", e.EnhancedRule)
	assert.Equal(t, 2, e.HistoricalOccurrenceCount)
	assert.Equal(t, 4, e.HistoricalTotalTransactions)
	assert.Equal(t, 0.5, e.EnhancedSupport)
	assert.Equal(t, "X + Y + U", res.ExportRules()[0].EnhancedRule)
}

func TestRunAnalysis_FallsBackToGraphHistory(t *testing.T) {
	h := eclat.NewHistoricalLog()
	h.Add("G1", "X", "Y", "U")
	graph := &fakeHistory{log: h}
	svc := newService(graph, nil, false)

	res, err := svc.RunAnalysis(context.Background(), AnalysisRequest{
		Transactions: orders(t),
		Catalog:      table(t, "catalog.csv", "SKU Penjual", "X", "Y", "U"),
		Params:       params(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, graph.calls)
	assert.Equal(t, "march", graph.tag)
	assert.Equal(t, 1, res.Summary.EnhancedRulesCount)
}

func TestRunAnalysis_HistoryUnavailable(t *testing.T) {
	graph := &fakeHistory{err: errors.New("graph down")}
	svc := newService(graph, nil, false)

	res, err := svc.RunAnalysis(context.Background(), AnalysisRequest{
		Transactions: orders(t),
		Catalog:      table(t, "catalog.csv", "SKU Penjual", "X", "Y", "U"),
		Params:       params(),
	})
	require.NoError(t, err)
	assert.Equal(t, eclat.ReasonNoHistory, res.Summary.EnhancementReason)
	assert.False(t, res.Summary.HasHistorical)
	assert.Len(t, res.Rules, 1, "plain rules survive")
	assert.Equal(t, res.Rules, res.ExportRules())
}

func TestRunAnalysis_NoUnsoldPassesRulesThrough(t *testing.T) {
	svc := newService(nil, nil, false)

	res, err := svc.RunAnalysis(context.Background(), AnalysisRequest{
		Transactions: orders(t),
		Catalog:      table(t, "catalog.csv", "SKU Penjual", "X", "Y", "Z"),
		Params:       params(),
	})
	require.NoError(t, err)
	assert.Equal(t, eclat.ReasonNoUnsoldItems, res.Summary.EnhancementReason)
	assert.Len(t, res.EnhancedRules, 1)
	assert.Empty(t, res.EnhancedRules[0].EnhancedRule)
	assert.Zero(t, res.Summary.EnhancedRulesCount)
}

func TestRunAnalysis_Publishes(t *testing.T) {
	pub := &fakePublisher{}
	svc := newService(nil, pub, true)

	res, err := svc.RunAnalysis(context.Background(), AnalysisRequest{Transactions: orders(t), Params: params()})
	require.NoError(t, err)
	assert.True(t, res.Summary.Published)
	assert.Equal(t, "analysis-1", pub.analysisID)
	assert.Len(t, pub.rules, 1)

	pub.err = errors.New("write failed")
	res, err = svc.RunAnalysis(context.Background(), AnalysisRequest{Transactions: orders(t), Params: params()})
	require.NoError(t, err, "publishing is best effort")
	assert.False(t, res.Summary.Published)
}

func TestRunAnalysis_Errors(t *testing.T) {
	svc := newService(nil, nil, false)
	ctx := context.Background()

	_, err := svc.RunAnalysis(ctx, AnalysisRequest{Params: params()})
	assert.Equal(t, http.StatusBadRequest, apierr.HTTPStatus(err))

	bad := params()
	bad.MinSupport = 0
	_, err = svc.RunAnalysis(ctx, AnalysisRequest{Transactions: orders(t), Params: bad})
	assert.Equal(t, "invalid_params", apierr.Code(err, ""))

	_, err = svc.RunAnalysis(ctx, AnalysisRequest{
		Transactions: table(t, "orders.csv", "Invoice,Item", "1,A"),
		Params:       params(),
	})
	var shape *apierr.InputShapeError
	assert.True(t, errors.As(err, &shape))

	high := params()
	high.MinSupport = 0.9
	_, err = svc.RunAnalysis(ctx, AnalysisRequest{Transactions: orders(t), Params: high})
	var empty *apierr.EmptyResultError
	require.True(t, errors.As(err, &empty))
	assert.Equal(t, "no itemsets found at min_support=0.9", empty.Reason)
}

func TestRunAnalysis_Cancelled(t *testing.T) {
	svc := newService(nil, nil, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RunAnalysis(ctx, AnalysisRequest{Transactions: orders(t), Params: params()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "cancelled", outcome(err))
}

func TestRunAnalysis_DateRangeRecorded(t *testing.T) {
	tx := table(t, "orders.csv",
		"Order ID,Seller SKU,Created Time",
		"1,X,01/03/2024 10:00", "1,Y,01/03/2024 10:00",
		"2,X,02/03/2024 10:00", "2,Y,02/03/2024 10:00",
		"3,Z,09/03/2024 10:00",
	)
	svc := newService(nil, nil, false)
	svc.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }

	dr := models.DateRange{Column: "Created Time", Start: "01/03/2024", End: "05/03/2024"}
	res, err := svc.RunAnalysis(context.Background(), AnalysisRequest{Transactions: tx, Params: params(), DateRange: dr})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Summary.TotalTransactions)
	require.NotNil(t, res.Summary.DateRange)
	assert.Equal(t, dr, *res.Summary.DateRange)
}

func TestAnalyzeProducts(t *testing.T) {
	svc := newService(nil, nil, false)
	pa, err := svc.AnalyzeProducts(orders(t), table(t, "catalog.csv", "SKU Penjual", "X", "W"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, pa.SoldCount)
	assert.Equal(t, []string{"W"}, pa.UnsoldSKUs())
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", outcome(nil))
	assert.Equal(t, "invalid_input", outcome(&apierr.InputShapeError{}))
	assert.Equal(t, "empty", outcome(&apierr.EmptyResultError{}))
	assert.Equal(t, "error", outcome(errors.New("boom")))
}
