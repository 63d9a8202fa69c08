package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
	"github.com/yishak-cs/bundle-miner/internal/eclat"
	"github.com/yishak-cs/bundle-miner/internal/ingest"
	"github.com/yishak-cs/bundle-miner/internal/metrics"
	"github.com/yishak-cs/bundle-miner/internal/models"
	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

const topProductsLimit = 10

// HistorySource supplies a historical order log when none was uploaded.
type HistorySource interface {
	LoadOrderHistory(ctx context.Context, source string) (*eclat.HistoricalLog, error)
}

// RulePublisher receives the final rules of a run.
type RulePublisher interface {
	PublishRules(ctx context.Context, analysisID string, rules []eclat.AssociationRule) (int, error)
}

type Config struct {
	Miner   eclat.MinerConfig
	Publish bool
	// HistoryTag selects graph orders imported under this source; empty means all orders.
	HistoryTag string
}

// AnalysisRequest carries the decoded inputs of one run. Only Transactions is required.
type AnalysisRequest struct {
	Transactions *ingest.Table
	Catalog      *ingest.Table
	Historical   *ingest.Table
	Params       models.Params
	DateRange    models.DateRange
	// OrderColumn and ProductColumn override the default export column names.
	OrderColumn   string
	ProductColumn string
}

// BundlingService runs the full mining pipeline over uploaded tables.
type BundlingService struct {
	log       *logger.Logger
	cfg       Config
	ingester  *ingest.Ingester
	miner     *eclat.Miner
	synth     *eclat.Synthesizer
	validator *eclat.Validator
	history   HistorySource
	publisher RulePublisher

	newID func() string
	now   func() time.Time
}

// NewBundlingService wires the pipeline. history and publisher may be nil.
func NewBundlingService(log *logger.Logger, cfg Config, history HistorySource, publisher RulePublisher) *BundlingService {
	log = logger.OrNop(log)
	return &BundlingService{
		log:       log.With("service", "BundlingService"),
		cfg:       cfg,
		ingester:  ingest.NewIngester(log),
		miner:     eclat.NewMiner(log, cfg.Miner),
		synth:     eclat.NewSynthesizer(log),
		validator: eclat.NewValidator(log),
		history:   history,
		publisher: publisher,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// RunAnalysis prepares transactions, mines frequent itemsets, and returns ranked, deduplicated
// rules. When a catalog or historical log is available the two-item rules are also extended
// with unsold products confirmed by the history.
func (s *BundlingService) RunAnalysis(ctx context.Context, req AnalysisRequest) (res *models.AnalysisResult, err error) {
	started := s.now()
	defer func() {
		metrics.AnalysesTotal.WithLabelValues(outcome(err)).Inc()
	}()

	if req.Transactions == nil {
		return nil, apierr.New(http.StatusBadRequest, "missing_transactions", errors.New("transactions table is required"))
	}
	if err := req.Params.Validate(); err != nil {
		return nil, apierr.New(http.StatusBadRequest, "invalid_params", err)
	}

	id := s.newID()
	log := s.log.With("analysis_id", id)
	log.Info("starting bundling analysis",
		"rows", req.Transactions.Len(),
		"min_support", req.Params.MinSupport,
		"min_confidence", req.Params.MinConfidence,
		"min_lift", req.Params.MinLift,
		"min_support_count", req.Params.MinSupportCount,
	)

	opts := ingest.DefaultPrepareOptions()
	if req.OrderColumn != "" {
		opts.OrderColumn = req.OrderColumn
	}
	if req.ProductColumn != "" {
		opts.ProductColumn = req.ProductColumn
	}
	opts.MinSupportCount = req.Params.MinSupportCount
	opts.DateRange = req.DateRange

	var products *models.ProductAnalysis
	if req.Catalog != nil {
		pa, perr := s.ingester.AnalyzeProductSales(req.Transactions, req.Catalog, opts.ProductColumn)
		if perr != nil {
			log.Warn("product analysis failed, continuing without unsold products", "error", perr)
		} else {
			products = pa
		}
	}

	stage := time.Now()
	prepared, err := s.ingester.PrepareTransactions(req.Transactions, opts)
	metrics.ObserveStage("prepare", stage)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare transactions: %w", err)
	}

	stage = time.Now()
	lat, err := s.miner.Mine(ctx, prepared.Transactions, prepared.CandidateItems(), req.Params.MinSupport)
	metrics.ObserveStage("mine", stage)
	if err != nil {
		return nil, fmt.Errorf("failed to mine itemsets: %w", err)
	}
	if lat.Empty() {
		return nil, &apierr.EmptyResultError{Reason: fmt.Sprintf("no itemsets found at min_support=%g", req.Params.MinSupport)}
	}
	metrics.RecordLevels(lat.LevelCounts())

	stage = time.Now()
	synthesized := s.synth.Synthesize(lat)
	filtered := eclat.FilterRules(synthesized, req.Params.Thresholds())
	metrics.ObserveStage("synthesize", stage)

	stage = time.Now()
	rules, dedup := eclat.DeduplicateRules(filtered)
	eclat.SortRules(rules)
	metrics.ObserveStage("dedupe", stage)
	metrics.RecordRules("synthesized", len(synthesized))
	metrics.RecordRules("filtered", len(filtered))
	metrics.RecordRules("deduplicated", len(rules))
	log.Info("rules generated",
		"synthesized", len(synthesized),
		"filtered", len(filtered),
		"unique", len(rules),
		"duplicates_removed", dedup.Removed,
	)

	lift := eclat.LiftDistribution(rules)
	if lift.Count > 0 {
		log.Info("lift distribution", "min", lift.Min, "max", lift.Max, "mean", lift.Mean, "median", lift.Median)
	}

	res = &models.AnalysisResult{
		Rules:           models.RuleRecords(rules),
		ProductAnalysis: products,
	}
	sum := &res.Summary
	sum.ID = id
	sum.CreatedAt = started.UTC()
	sum.Params = req.Params
	if req.DateRange.Enabled() {
		dr := req.DateRange
		sum.DateRange = &dr
	}
	sum.TotalTransactions = prepared.TransactionCount()
	sum.OriginalOrders = prepared.OriginalOrders
	sum.SingleItemOrders = prepared.SingleItemOrders
	sum.UniqueProducts = len(prepared.Candidates)
	sum.TopProducts = eclat.TopItems(prepared.Transactions, topProductsLimit)
	sum.MaxItemsetLevel = lat.MaxSize()
	if deepest, ok := lat.Level(lat.MaxSize()); ok {
		sum.DeepestLevelCount = deepest.Len()
	}
	sum.LevelCounts = lat.LevelCounts()
	sum.RulesGenerated = len(synthesized)
	sum.OriginalRulesCount = len(rules)
	sum.Dedup = dedup
	sum.Lift = lift
	sum.Ingest = prepared.Stats

	unsold := products.UnsoldSKUs()
	sum.HasUnsoldProducts = len(unsold) > 0
	if req.Catalog != nil || req.Historical != nil {
		stage = time.Now()
		history := s.loadHistory(ctx, log, req.Historical)
		enh := s.validator.Enhance(rules, unsold, history)
		metrics.ObserveStage("enhance", stage)
		metrics.RecordRules("enhanced", enh.EnhancedCount)

		res.EnhancedRules = models.EnhancedRuleRecords(enh.Enhanced)
		sum.HasHistorical = enh.HistoricalValidation
		sum.OriginalRulesCount = len(enh.Original)
		sum.EnhancedRulesCount = enh.EnhancedCount
		sum.EnhancementReason = enh.Reason
	}

	if s.cfg.Publish && s.publisher != nil && len(rules) > 0 {
		stage = time.Now()
		if _, err := s.publisher.PublishRules(ctx, id, rules); err != nil {
			log.Warn("failed to publish rules", "error", err)
		} else {
			sum.Published = true
		}
		metrics.ObserveStage("publish", stage)
	}

	sum.ProcessTime = s.now().Sub(started)
	log.Info("bundling analysis complete",
		"transactions", sum.TotalTransactions,
		"max_level", sum.MaxItemsetLevel,
		"rules", len(res.Rules),
		"enhanced", sum.EnhancedRulesCount,
		"elapsed", sum.ProcessTime,
	)
	return res, nil
}

// loadHistory prefers an uploaded table and falls back to the graph. Failures degrade to an
// empty log so the validator reports the missing history instead of failing the run.
func (s *BundlingService) loadHistory(ctx context.Context, log *logger.Logger, table *ingest.Table) *eclat.HistoricalLog {
	if table != nil {
		h, _, err := s.ingester.LoadHistoricalLog(table)
		if err != nil {
			log.Warn("historical file unusable", "error", err)
			return nil
		}
		return h
	}
	if s.history == nil {
		return nil
	}
	h, err := s.history.LoadOrderHistory(ctx, s.cfg.HistoryTag)
	if err != nil {
		log.Warn("failed to load order history from graph", "error", err)
		return nil
	}
	return h
}

// AnalyzeProducts compares a catalog with the products sold in the transaction table.
func (s *BundlingService) AnalyzeProducts(transactions, catalog *ingest.Table, productColumn string) (*models.ProductAnalysis, error) {
	if productColumn == "" {
		productColumn = ingest.DefaultProductColumn
	}
	return s.ingester.AnalyzeProductSales(transactions, catalog, productColumn)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	switch apierr.HTTPStatus(err) {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnprocessableEntity:
		return "empty"
	}
	return "error"
}
