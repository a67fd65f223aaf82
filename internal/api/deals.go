package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"price-tracker/internal/analysis"
	"price-tracker/internal/model"
	"price-tracker/internal/pricing"
)

// DealRequest filters the deals listing
type DealRequest struct {
	MaxPrice       *float64
	BelowThreshold bool
	Limit          int
}

// Validate validates the deal request
func (r *DealRequest) Validate() error {
	if r.MaxPrice != nil && *r.MaxPrice < 0 {
		return errors.New("max_price cannot be negative")
	}
	return nil
}

// Deal is one ranked product. Score is 100 at the historical low and 0 at
// the historical high.
type Deal struct {
	Product model.Product      `json:"product"`
	Trend   model.TrendSummary `json:"trend"`
	Score   float64            `json:"score"`
	Reasons []string           `json:"reasons"`
}

// GetDeals ranks products by how close their latest price is to the
// lowest price seen
func (h *Handlers) GetDeals(c *gin.Context) {
	req := DealRequest{
		BelowThreshold: c.Query("below_threshold") == "true",
		Limit:          parseLimit(c, 20),
	}
	if v := c.Query("max_price"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_price"})
			return
		}
		req.MaxPrice = &f
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var deals []Deal
	for _, p := range h.catalog.Products() {
		if p.Name == "" {
			continue
		}
		summary, err := h.analyzer.Analyze(c.Request.Context(), p.Name)
		if errors.Is(err, analysis.ErrInsufficientData) {
			continue
		}
		if err != nil {
			h.serverError(c, "failed to analyze trend", err)
			return
		}
		if !req.matches(p, summary) {
			continue
		}
		deals = append(deals, scoreDeal(p, summary))
	}

	sort.SliceStable(deals, func(i, j int) bool {
		if deals[i].Score != deals[j].Score {
			return deals[i].Score > deals[j].Score
		}
		return deals[i].Product.Name < deals[j].Product.Name
	})
	if len(deals) > req.Limit {
		deals = deals[:req.Limit]
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(deals),
		"deals": deals,
	})
}

func (r DealRequest) matches(p model.Product, s model.TrendSummary) bool {
	if r.MaxPrice != nil && s.LatestPrice > *r.MaxPrice {
		return false
	}
	if r.BelowThreshold && (p.Threshold == nil || s.LatestPrice >= *p.Threshold) {
		return false
	}
	return true
}

func scoreDeal(p model.Product, s model.TrendSummary) Deal {
	score := 100.0
	if spread := s.MaxPrice - s.MinPrice; spread > 0 {
		score = (s.MaxPrice - s.LatestPrice) / spread * 100
	}

	var reasons []string
	if s.AtHistoricalLow {
		reasons = append(reasons, "at historical low")
	}
	if s.MaxPrice > 0 && s.LatestPrice < s.MaxPrice {
		off := (s.MaxPrice - s.LatestPrice) / s.MaxPrice * 100
		reasons = append(reasons, fmt.Sprintf("%.1f%% below peak", off))
	}
	if p.Threshold != nil && s.LatestPrice < *p.Threshold {
		reasons = append(reasons, fmt.Sprintf("below threshold of %.2f", *p.Threshold))
	}
	if s.RatePerHour != nil && *s.RatePerHour < 0 {
		reasons = append(reasons, fmt.Sprintf("falling %v per hour", pricing.Round(-*s.RatePerHour, 4)))
	}

	return Deal{
		Product: p,
		Trend:   s,
		Score:   float64(int(score*100+0.5)) / 100,
		Reasons: reasons,
	}
}
