package rest

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"skincareReco/business/bandit"
	"skincareReco/domain"
	"skincareReco/pkg/metrics"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	BanditHandler struct {
		validate      *validator.Validate
		banditService BanditService
		catalog       CandidateCatalog
		timeout       time.Duration
	}

	BanditService interface {
		DefaultK() int
		Recommend(ctx context.Context, req bandit.RecommendRequest) ([]domain.RankedProduct, error)
		RecordInteraction(ctx context.Context, event domain.InteractionEvent) (domain.ArmSummary, error)
		UpdateBandit(ctx context.Context, productID uint64, reward float64, impressionCount *int64) (domain.ArmSummary, error)
		Statistics(ctx context.Context, productIDs []uint64) (domain.BanditStatistics, error)
		ProductState(ctx context.Context, productID uint64) (domain.ArmSummary, error)
		ProductInteractions(ctx context.Context, productID uint64, limit, offset int) (domain.ProductInteractions, error)
		UserInteractions(ctx context.Context, userID uint, limit, offset int) (domain.UserInteractions, error)
	}

	// CandidateCatalog supplies candidates when the client does not send them.
	CandidateCatalog interface {
		FindCandidates(ctx context.Context, category string) ([]domain.Candidate, error)
	}

	CandidateRequest struct {
		ProductID uint64 `json:"product_id"`
		Category  string `json:"category"`
	}

	RecommendRequest struct {
		Candidates        []CandidateRequest `json:"candidates" validate:"required"`
		N                 *int               `json:"n"`
		Category          string             `json:"category"`
		ExcludeProductIDs []uint64           `json:"exclude_product_ids"`
		Seed              *uint64            `json:"seed"`
	}

	RecommendQuery struct {
		N                 string `query:"n"`
		Category          string `query:"category"`
		ExcludeProductIDs string `query:"exclude_product_ids"`
	}

	RecommendResponse struct {
		Recommendations []domain.RankedProduct `json:"recommendations"`
		Count           int                    `json:"count"`
	}

	UpdateRequest struct {
		ProductID       uint64   `json:"product_id" validate:"required"`
		Reward          *float64 `json:"reward" validate:"required"`
		ImpressionCount *int64   `json:"impression_count"`
	}

	TrackRequest struct {
		ProductID       uint64         `json:"product_id" validate:"required"`
		Action          string         `json:"action" validate:"required"`
		Reward          *float64       `json:"reward"`
		ImpressionCount *int64         `json:"impression_count"`
		Context         map[string]any `json:"context"`
	}
)

func NewBanditHandler(svc BanditService, catalog CandidateCatalog, timeout time.Duration) *BanditHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &BanditHandler{
		validate:      validator.New(),
		banditService: svc,
		catalog:       catalog,
		timeout:       timeout,
	}
}

// POST /api/v1/bandit/recommend
func (h *BanditHandler) Recommend(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.BanditRecommendLatency.WithLabelValues("request").Observe(time.Since(start).Seconds())
	}()

	var req RecommendRequest
	if err := c.Bind(&req); err != nil {
		return h.recommendFailed(c, "request", http.StatusBadRequest, err)
	}
	if err := h.validate.Struct(&req); err != nil {
		return h.recommendFailed(c, "request", http.StatusBadRequest, err)
	}

	candidates := make([]domain.Candidate, 0, len(req.Candidates))
	for _, cand := range req.Candidates {
		candidates = append(candidates, domain.Candidate{ProductID: cand.ProductID, Category: cand.Category})
	}

	return h.recommend(c, "request", bandit.RecommendRequest{
		Candidates:     candidates,
		K:              h.k(req.N),
		CategoryFilter: req.Category,
		ExcludedIDs:    req.ExcludeProductIDs,
		Seed:           req.Seed,
	})
}

// GET /api/v1/bandit/recommend?n=5&category=serum&exclude_product_ids=1,2
func (h *BanditHandler) RecommendFromCatalog(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.BanditRecommendLatency.WithLabelValues("catalog").Observe(time.Since(start).Seconds())
	}()

	if h.catalog == nil {
		metrics.BanditRecommendRequests.WithLabelValues("catalog", strconv.Itoa(http.StatusServiceUnavailable)).Inc()
		return respondError(c, "recommend", fmt.Errorf("%w: no product catalog configured", domain.ErrCatalogUnavailable))
	}

	var q RecommendQuery
	if err := c.Bind(&q); err != nil {
		return h.recommendFailed(c, "catalog", http.StatusBadRequest, err)
	}
	excluded, err := parseIDList(q.ExcludeProductIDs)
	if err != nil {
		return h.recommendFailed(c, "catalog", http.StatusBadRequest, err)
	}
	var n *int
	if q.N != "" {
		v, err := strconv.Atoi(q.N)
		if err != nil {
			return h.recommendFailed(c, "catalog", http.StatusBadRequest, fmt.Errorf("invalid n %q", q.N))
		}
		n = &v
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	candidates, err := h.catalog.FindCandidates(ctx, q.Category)
	if err != nil {
		metrics.BanditRecommendRequests.WithLabelValues("catalog", strconv.Itoa(statusFor(err))).Inc()
		return respondError(c, "load candidates", err)
	}

	return h.recommend(c, "catalog", bandit.RecommendRequest{
		Candidates:     candidates,
		K:              h.k(n),
		CategoryFilter: q.Category,
		ExcludedIDs:    excluded,
	})
}

func (h *BanditHandler) k(n *int) int {
	if n == nil {
		return h.banditService.DefaultK()
	}
	return *n
}

func (h *BanditHandler) recommend(c echo.Context, source string, req bandit.RecommendRequest) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	recs, err := h.banditService.Recommend(ctx, req)
	if err != nil {
		metrics.BanditRecommendRequests.WithLabelValues(source, strconv.Itoa(statusFor(err))).Inc()
		return respondError(c, "recommend", err)
	}

	metrics.BanditRecommendRequests.WithLabelValues(source, strconv.Itoa(http.StatusOK)).Inc()
	return c.JSON(http.StatusOK, fres.Response.StatusOK(RecommendResponse{
		Recommendations: recs,
		Count:           len(recs),
	}))
}

func (h *BanditHandler) recommendFailed(c echo.Context, source string, status int, err error) error {
	metrics.BanditRecommendRequests.WithLabelValues(source, strconv.Itoa(status)).Inc()
	return c.JSON(status, ResponseError{Message: err.Error()})
}

// POST /api/v1/bandit/update
func (h *BanditHandler) Update(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	summary, err := h.banditService.UpdateBandit(ctx, req.ProductID, *req.Reward, req.ImpressionCount)
	if err != nil {
		return respondError(c, "bandit update", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}

// POST /api/v1/interactions/track
func (h *BanditHandler) Track(c echo.Context) error {
	var req TrackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	// anonymous interactions are tracked with user id 0
	userID, _ := c.Get("user_id").(uint)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	summary, err := h.banditService.RecordInteraction(ctx, domain.InteractionEvent{
		UserID:          userID,
		ProductID:       req.ProductID,
		Action:          req.Action,
		Reward:          req.Reward,
		ImpressionCount: req.ImpressionCount,
		Context:         req.Context,
		OccurredAt:      time.Now(),
	})
	if err != nil {
		return respondError(c, "track interaction", err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(summary))
}

// GET /api/v1/bandit/statistics?product_ids=1,2
func (h *BanditHandler) Statistics(c echo.Context) error {
	ids, err := parseIDList(c.QueryParam("product_ids"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	stats, err := h.banditService.Statistics(ctx, ids)
	if err != nil {
		return respondError(c, "bandit statistics", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(stats))
}

// GET /api/v1/bandit/product/:id
func (h *BanditHandler) ProductState(c echo.Context) error {
	id, err := parseProductID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	summary, err := h.banditService.ProductState(ctx, id)
	if err != nil {
		return respondError(c, "product state", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}

// GET /api/v1/interactions/product/:id?limit=50&offset=0
func (h *BanditHandler) ProductInteractions(c echo.Context) error {
	id, err := parseProductID(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	limit, offset, err := parsePage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	page, err := h.banditService.ProductInteractions(ctx, id, limit, offset)
	if err != nil {
		return respondError(c, "product interactions", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}

// GET /api/v1/interactions/user?limit=50&offset=0
func (h *BanditHandler) UserInteractions(c echo.Context) error {
	userID, ok := c.Get("user_id").(uint)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ResponseError{Message: "authentication required"})
	}

	limit, offset, err := parsePage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	page, err := h.banditService.UserInteractions(ctx, userID, limit, offset)
	if err != nil {
		return respondError(c, "user interactions", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}
