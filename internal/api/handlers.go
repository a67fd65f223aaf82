package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"price-tracker/internal/analysis"
	"price-tracker/internal/config"
	"price-tracker/internal/model"
	"price-tracker/internal/tracker"
	"price-tracker/internal/version"
)

// StoreInterface defines the store reads needed by handlers
type StoreInterface interface {
	Latest(ctx context.Context, name string) (model.Observation, bool, error)
	Recent(ctx context.Context, name string, n int) ([]model.Observation, error)
	Alerts(ctx context.Context, name string, limit int) ([]model.Alert, error)
}

// CatalogInterface is the mutable product list
type CatalogInterface interface {
	Products() []model.Product
	Get(name string) (model.Product, bool)
	Add(products ...model.Product) int
	SetThreshold(name string, threshold *float64) error
}

// SchedulerInterface defines the scheduler interface for handlers
type SchedulerInterface interface {
	RunNow(ctx context.Context) model.CycleReport
	ReportNow(ctx context.Context) (model.Report, error)
	Status() tracker.Status
}

// TrendAnalyzer summarizes one product's history
type TrendAnalyzer interface {
	Analyze(ctx context.Context, name string) (model.TrendSummary, error)
}

// ReportBuilder builds a report without publishing it
type ReportBuilder interface {
	Generate(ctx context.Context) (model.Report, error)
}

// Handlers contains all API handlers
type Handlers struct {
	store     StoreInterface
	catalog   CatalogInterface
	scheduler SchedulerInterface
	analyzer  TrendAnalyzer
	reports   ReportBuilder
	linksPath string
	logger    *slog.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	store StoreInterface,
	catalog CatalogInterface,
	scheduler SchedulerInterface,
	analyzer TrendAnalyzer,
	reports ReportBuilder,
	linksPath string,
	logger *slog.Logger,
) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:     store,
		catalog:   catalog,
		scheduler: scheduler,
		analyzer:  analyzer,
		reports:   reports,
		linksPath: linksPath,
		logger:    logger,
	}
}

// HealthCheck returns the health status
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"version":   version.Current(),
		"products":  len(h.catalog.Products()),
	}
	if h.scheduler != nil {
		resp["scheduler"] = h.scheduler.Status()
	}
	c.JSON(http.StatusOK, resp)
}

// ProductView is a catalog entry with its most recent reading
type ProductView struct {
	model.Product
	LatestPrice *float64   `json:"latest_price,omitempty"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
}

// GetProducts returns the catalog with latest prices
func (h *Handlers) GetProducts(c *gin.Context) {
	products := h.catalog.Products()
	views := make([]ProductView, 0, len(products))

	for _, p := range products {
		view := ProductView{Product: p}
		if p.Name != "" {
			obs, ok, err := h.store.Latest(c.Request.Context(), p.Name)
			if err != nil {
				h.serverError(c, "failed to read latest price", err)
				return
			}
			if ok {
				view.LatestPrice = model.Float(obs.Price)
				ts := obs.Timestamp
				view.LastChecked = &ts
			}
		}
		views = append(views, view)
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.JSON(http.StatusOK, gin.H{
		"count":    len(views),
		"products": views,
	})
}

// GetProductHistory returns the most recent observations, oldest first
func (h *Handlers) GetProductHistory(c *gin.Context) {
	name, ok := h.requireProduct(c)
	if !ok {
		return
	}

	history, err := h.store.Recent(c.Request.Context(), name, parseLimit(c, 50))
	if err != nil {
		h.serverError(c, "failed to read history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": name,
		"count":   len(history),
		"history": history,
	})
}

// GetProductTrend returns the trend summary. A product with fewer than two
// observations gets a partial summary with available=false.
func (h *Handlers) GetProductTrend(c *gin.Context) {
	name, ok := h.requireProduct(c)
	if !ok {
		return
	}

	summary, err := h.analyzer.Analyze(c.Request.Context(), name)
	if err != nil && !errors.Is(err, analysis.ErrInsufficientData) {
		h.serverError(c, "failed to analyze trend", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UpdateThreshold sets or clears a product's alert threshold
func (h *Handlers) UpdateThreshold(c *gin.Context) {
	var req struct {
		Threshold *float64 `json:"threshold"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	name := c.Param("name")
	err := h.catalog.SetThreshold(name, req.Threshold)
	switch {
	case errors.Is(err, tracker.ErrUnknownProduct):
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, _ := h.catalog.Get(name)
	h.logger.Info("threshold updated", "product", name, "threshold", req.Threshold)
	c.JSON(http.StatusOK, product)
}

// GetProductAlerts returns alerts raised for one product, newest first
func (h *Handlers) GetProductAlerts(c *gin.Context) {
	name, ok := h.requireProduct(c)
	if !ok {
		return
	}
	h.writeAlerts(c, name)
}

// GetAlerts returns alerts for every product, newest first
func (h *Handlers) GetAlerts(c *gin.Context) {
	h.writeAlerts(c, "")
}

func (h *Handlers) writeAlerts(c *gin.Context, name string) {
	alerts, err := h.store.Alerts(c.Request.Context(), name, parseLimit(c, 50))
	if err != nil {
		h.serverError(c, "failed to read alerts", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(alerts),
		"alerts": alerts,
	})
}

// AddLinks adds product URLs from the newline-separated "urls" form field.
// Every URL must belong to a supported site or nothing is added.
func (h *Handlers) AddLinks(c *gin.Context) {
	var products []model.Product
	for _, line := range strings.Split(c.PostForm("urls"), "\n") {
		link := strings.TrimSpace(line)
		if link == "" {
			continue
		}
		source := config.SourceForURL(link)
		if source == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported site", "url": link})
			return
		}
		products = append(products, model.Product{URL: link, Source: source})
	}
	if len(products) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "urls is required"})
		return
	}

	known := make(map[string]bool)
	for _, p := range h.catalog.Products() {
		known[p.URL] = true
	}
	var fresh []model.Product
	var links []string
	for _, p := range products {
		if known[p.URL] {
			continue
		}
		known[p.URL] = true
		fresh = append(fresh, p)
		links = append(links, p.URL)
	}

	if err := config.AppendLinks(h.linksPath, links); err != nil {
		h.serverError(c, "failed to save links", err)
		return
	}
	added := h.catalog.Add(fresh...)

	h.logger.Info("links added", "added", added, "submitted", len(products))
	c.JSON(http.StatusCreated, gin.H{
		"added":   added,
		"skipped": len(products) - added,
	})
}

// TriggerCycle runs a tracking cycle. With wait=true the cycle report is
// returned; otherwise the cycle runs in the background.
func (h *Handlers) TriggerCycle(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not available"})
		return
	}

	if c.Query("wait") == "true" {
		c.JSON(http.StatusOK, h.scheduler.RunNow(c.Request.Context()))
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	go h.scheduler.RunNow(ctx)
	c.JSON(http.StatusAccepted, gin.H{"message": "cycle triggered"})
}

// TriggerReport generates and publishes a report
func (h *Handlers) TriggerReport(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scheduler not available"})
		return
	}

	report, err := h.scheduler.ReportNow(c.Request.Context())
	if err != nil {
		h.serverError(c, "failed to generate report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetReport builds a report without writing it anywhere
func (h *Handlers) GetReport(c *gin.Context) {
	report, err := h.reports.Generate(c.Request.Context())
	if err != nil {
		h.serverError(c, "failed to generate report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handlers) requireProduct(c *gin.Context) (string, bool) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product name is required"})
		return "", false
	}
	if _, ok := h.catalog.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
		return "", false
	}
	return name, true
}

func (h *Handlers) serverError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "err", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// parseLimit reads ?limit=, capped at maxLimit
func parseLimit(c *gin.Context, def int) int {
	const maxLimit = 1000
	limit := def
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 {
		limit = min(l, maxLimit)
	}
	return limit
}
