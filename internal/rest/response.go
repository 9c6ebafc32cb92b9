package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"skincareReco/business/bandit"
	"skincareReco/domain"
	"skincareReco/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ResponseError represent the response error struct
type ResponseError struct {
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidReward),
		errors.Is(err, domain.ErrUnknownAction),
		errors.Is(err, domain.ErrInvalidProductID),
		errors.Is(err, domain.ErrInvalidK):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStorageUnavailable),
		errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c echo.Context, op string, err error) error {
	status := statusFor(err)
	traceID := bandit.TraceIDFromContext(c.Request().Context())

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(op+" failed", "trace_id", traceID, "error", err)
		msg = "internal server error"
	} else {
		logger.Warn(op+" failed", "trace_id", traceID, "status", status, "error", err)
	}

	return c.JSON(status, ResponseError{Message: msg})
}

func parseProductID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidProductID
	}
	return id, nil
}

// parseIDList parses "1,2,3"; blanks are skipped.
func parseIDList(raw string) ([]uint64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := parseProductID(p)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parsePage reads the optional limit/offset query params; zero means default.
func parsePage(c echo.Context) (limit, offset int, err error) {
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return 0, 0, errors.New("invalid limit")
		}
	}
	if raw := c.QueryParam("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			return 0, 0, errors.New("invalid offset")
		}
	}
	return limit, offset, nil
}
