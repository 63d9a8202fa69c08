package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yishak-cs/bundle-miner/internal/apierr"
	"github.com/yishak-cs/bundle-miner/internal/export"
	"github.com/yishak-cs/bundle-miner/internal/ingest"
	"github.com/yishak-cs/bundle-miner/internal/models"
	"github.com/yishak-cs/bundle-miner/internal/services"
	"github.com/yishak-cs/bundle-miner/internal/store"
	"github.com/yishak-cs/bundle-miner/pkg/logger"
)

const defaultRecommendationLimit = 10

// HealthChecker reports the state of an optional backing store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config bounds request handling.
type Config struct {
	MaxUploadBytes  int64
	AnalysisTimeout time.Duration
}

// APIHandler handles all API requests
type APIHandler struct {
	log             *logger.Logger
	cfg             Config
	bundling        *services.BundlingService
	recommendations *services.RecommendationService
	results         *store.ResultStore
	graph           HealthChecker
}

// NewAPIHandler creates a new API handler. graph may be nil when no database is configured.
func NewAPIHandler(
	log *logger.Logger,
	cfg Config,
	bundling *services.BundlingService,
	recommendations *services.RecommendationService,
	results *store.ResultStore,
	graph HealthChecker,
) *APIHandler {
	return &APIHandler{
		log:             logger.OrNop(log).With("component", "APIHandler"),
		cfg:             cfg,
		bundling:        bundling,
		recommendations: recommendations,
		results:         results,
		graph:           graph,
	}
}

// SetupRoutes configures all API routes
func (h *APIHandler) SetupRoutes(router *gin.Engine) {
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)

		api.POST("/analyses", h.CreateAnalysis)
		api.GET("/analyses", h.ListAnalyses)
		api.GET("/analyses/:id", h.GetAnalysis)
		api.DELETE("/analyses/:id", h.DeleteAnalysis)
		api.GET("/analyses/:id/rules", h.GetRules)
		api.GET("/analyses/:id/export", h.ExportRules)
		api.GET("/analyses/:id/recommendations", h.GetRecommendations)

		api.POST("/products/analysis", h.AnalyzeProducts)
		api.POST("/dates/unique", h.UniqueDates)
		api.POST("/dates/preview", h.PreviewDateRange)
	}
}

// CreateAnalysis runs the mining pipeline over the uploaded files.
func (h *APIHandler) CreateAnalysis(c *gin.Context) {
	h.limitBody(c)

	params := models.DefaultParams()
	if err := c.ShouldBind(&params); err != nil {
		h.respondServiceError(c, apierr.New(http.StatusBadRequest, "invalid_params", err), "invalid_params")
		return
	}
	var dates models.DateRange
	if err := c.ShouldBind(&dates); err != nil {
		h.respondServiceError(c, apierr.New(http.StatusBadRequest, "invalid_date_range", err), "invalid_date_range")
		return
	}

	req := services.AnalysisRequest{
		Params:        params,
		DateRange:     dates,
		OrderColumn:   strings.TrimSpace(c.PostForm("order_column")),
		ProductColumn: strings.TrimSpace(c.PostForm("product_column")),
	}
	var err error
	if req.Transactions, err = readUpload(c, fieldTransactions, true); err != nil {
		h.respondServiceError(c, err, "invalid_upload")
		return
	}
	if req.Catalog, err = readUpload(c, fieldProducts, false); err != nil {
		h.respondServiceError(c, err, "invalid_upload")
		return
	}
	if req.Historical, err = readUpload(c, fieldHistorical, false); err != nil {
		h.respondServiceError(c, err, "invalid_upload")
		return
	}

	ctx := c.Request.Context()
	if h.cfg.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.AnalysisTimeout)
		defer cancel()
	}

	result, err := h.bundling.RunAnalysis(ctx, req)
	if err != nil {
		h.respondServiceError(c, err, "analysis_failed")
		return
	}
	h.results.Put(result)

	c.JSON(http.StatusCreated, result)
}

// ListAnalyses returns the summaries of retained runs, newest first.
func (h *APIHandler) ListAnalyses(c *gin.Context) {
	summaries := h.results.Summaries()
	c.JSON(http.StatusOK, gin.H{
		"analyses": summaries,
		"count":    len(summaries),
	})
}

func (h *APIHandler) GetAnalysis(c *gin.Context) {
	result, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":          result.Summary,
		"product_analysis": result.ProductAnalysis,
	})
}

func (h *APIHandler) DeleteAnalysis(c *gin.Context) {
	if !h.results.Delete(c.Param("id")) {
		RespondError(c, http.StatusNotFound, "analysis_not_found", fmt.Errorf("analysis %q not found", c.Param("id")))
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRules returns plain rules, or enhanced ones with ?enhanced=true.
func (h *APIHandler) GetRules(c *gin.Context) {
	result, ok := h.lookup(c)
	if !ok {
		return
	}
	enhanced, _ := strconv.ParseBool(c.DefaultQuery("enhanced", "false"))
	limit, err := queryLimit(c, 0)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_limit", err)
		return
	}

	rules := result.Rules
	if enhanced {
		rules = result.EnhancedRules
	}
	total := len(rules)
	if limit > 0 && limit < total {
		rules = rules[:limit]
	}
	if rules == nil {
		rules = []models.RuleRecord{}
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis_id": result.Summary.ID,
		"enhanced":    enhanced,
		"total":       total,
		"rules":       rules,
	})
}

// ExportRules streams the exported rules as a CSV attachment.
func (h *APIHandler) ExportRules(c *gin.Context) {
	result, ok := h.lookup(c)
	if !ok {
		return
	}
	rules := result.ExportRules()
	if len(rules) == 0 {
		RespondError(c, http.StatusNotFound, "no_rules", errors.New("no rules to export"))
		return
	}

	filename := fmt.Sprintf("bundle_rules_%s.csv", result.Summary.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteRulesCSV(c.Writer, rules); err != nil {
		h.log.Error("failed to write rules export", "analysis_id", result.Summary.ID, "error", err)
	}
}

// GetRecommendations suggests items for a cart given as ?items=a,b or repeated item params.
func (h *APIHandler) GetRecommendations(c *gin.Context) {
	result, ok := h.lookup(c)
	if !ok {
		return
	}
	cart := cartItems(c)
	if len(cart) == 0 {
		RespondError(c, http.StatusBadRequest, "missing_items", errors.New("at least one cart item is required"))
		return
	}
	limit, err := queryLimit(c, defaultRecommendationLimit)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_limit", err)
		return
	}

	recommendations := h.recommendations.RecommendForCart(result, cart, limit)
	c.JSON(http.StatusOK, gin.H{
		"analysis_id":     result.Summary.ID,
		"cart":            cart,
		"recommendations": recommendations,
		"strategy":        "AssociationRules",
		"description":     "Items frequently bought together with your cart",
	})
}

// AnalyzeProducts compares an uploaded catalog with the products sold in a transaction file.
func (h *APIHandler) AnalyzeProducts(c *gin.Context) {
	h.limitBody(c)

	transactions, err := readUpload(c, fieldTransactions, true)
	if err != nil {
		h.respondServiceError(c, err, "invalid_upload")
		return
	}
	catalog, err := readUpload(c, fieldProducts, true)
	if err != nil {
		h.respondServiceError(c, err, "invalid_upload")
		return
	}

	analysis, err := h.bundling.AnalyzeProducts(transactions, catalog, strings.TrimSpace(c.PostForm("product_column")))
	if err != nil {
		h.respondServiceError(c, err, "product_analysis_failed")
		return
	}
	c.JSON(http.StatusOK, analysis)
}

// UniqueDates lists the distinct dates of a column so a client can offer a range picker.
func (h *APIHandler) UniqueDates(c *gin.Context) {
	h.limitBody(c)

	column := strings.TrimSpace(c.PostForm("date_column"))
	if column == "" {
		RespondError(c, http.StatusBadRequest, "missing_date_column", errors.New("date_column is required"))
		return
	}
	t, err := readUpload(c, fieldTransactions, true)
	if err != nil {
		h.respondServiceError(c, err, "invalid_upload")
		return
	}

	dates, err := ingest.UniqueDates(t, column)
	if err != nil {
		h.respondServiceError(c, err, "invalid_date_column")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"column": column,
		"dates":  dates,
		"count":  len(dates),
	})
}

// PreviewDateRange reports how many rows a date range keeps without running an analysis.
func (h *APIHandler) PreviewDateRange(c *gin.Context) {
	h.limitBody(c)

	var dates models.DateRange
	if err := c.ShouldBind(&dates); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_date_range", err)
		return
	}
	if !dates.Enabled() {
		RespondError(c, http.StatusBadRequest, "invalid_date_range",
			errors.New("date_column, start_date and end_date are required"))
		return
	}
	t, err := readUpload(c, fieldTransactions, true)
	if err != nil {
		h.respondServiceError(c, err, "invalid_upload")
		return
	}

	filtered, err := ingest.FilterByDateRange(t, dates.Column, dates.Start, dates.End)
	if err != nil {
		h.respondServiceError(c, err, "invalid_date_range")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"column":      dates.Column,
		"start_date":  dates.Start,
		"end_date":    dates.End,
		"rows_before": t.Len(),
		"rows_after":  filtered.Len(),
	})
}

// Health reports service status and, when configured, graph connectivity.
func (h *APIHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":         "ok",
		"stored_results": h.results.Len(),
		"graph":          "disabled",
	}
	if h.graph != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := h.graph.Health(ctx); err != nil {
			h.log.Warn("graph health check failed", "error", err)
			body["status"] = "degraded"
			body["graph"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["graph"] = "ok"
	}
	c.JSON(http.StatusOK, body)
}

func (h *APIHandler) lookup(c *gin.Context) (*models.AnalysisResult, bool) {
	id := c.Param("id")
	result, ok := h.results.Get(id)
	if !ok {
		RespondError(c, http.StatusNotFound, "analysis_not_found", fmt.Errorf("analysis %q not found", id))
		return nil, false
	}
	return result, true
}

func queryLimit(c *gin.Context, fallback int) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return fallback, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}

func cartItems(c *gin.Context) []string {
	var cart []string
	for _, v := range c.QueryArray("item") {
		if v = strings.TrimSpace(v); v != "" {
			cart = append(cart, v)
		}
	}
	for _, v := range strings.Split(c.Query("items"), ",") {
		if v = strings.TrimSpace(v); v != "" {
			cart = append(cart, v)
		}
	}
	return cart
}
