package rest

import (
	"context"
	"net/http"
	"time"

	"skincareReco/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type RewardPolicyService interface {
	RewardPolicy(ctx context.Context) domain.BanditConfig
	UpdateRewardPolicy(ctx context.Context, cfg domain.BanditConfig) (domain.BanditConfig, error)
}

type BanditAdminHandler struct {
	validate *validator.Validate
	service  RewardPolicyService
	timeout  time.Duration
}

func NewBanditAdminHandler(service RewardPolicyService) *BanditAdminHandler {
	return &BanditAdminHandler{
		validate: validator.New(),
		service:  service,
		timeout:  10 * time.Second,
	}
}

// GET /api/v1/admin/bandit/reward-policy
func (h *BanditAdminHandler) GetRewardPolicy(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	return c.JSON(http.StatusOK, fres.Response.StatusOK(h.service.RewardPolicy(ctx)))
}

// PUT /api/v1/admin/bandit/reward-policy
// body: {"reward_view":0,"reward_click":1,"reward_add_to_cart":2,"max_observed_reward":2}
func (h *BanditAdminHandler) UpdateRewardPolicy(c echo.Context) error {
	var body domain.BanditConfig
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "invalid body: " + err.Error()})
	}
	if err := h.validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	cfg, err := h.service.UpdateRewardPolicy(ctx, body)
	if err != nil {
		return respondError(c, "update reward policy", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(cfg))
}
