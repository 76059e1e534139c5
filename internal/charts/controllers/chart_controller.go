package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atmedrano/clinibox-backend/internal/charts/services"
	"github.com/atmedrano/clinibox-backend/internal/common/apperr"
	"github.com/atmedrano/clinibox-backend/pkg/metrics"
	"github.com/labstack/echo/v4"
)

type ChartController struct {
	AutosaveService *services.AutosaveService
	SnapshotService *services.SnapshotService
}

func NewChartController(autosaveService *services.AutosaveService, snapshotService *services.SnapshotService) *ChartController {
	return &ChartController{AutosaveService: autosaveService, SnapshotService: snapshotService}
}

type autosaveBatchRequest struct {
	ChartID   int64                  `json:"chartId"`
	PatientID int64                  `json:"patientId"`
	Changes   map[string]interface{} `json:"changes"`
}

// AutosaveBatchHandler applies one debounced batch of field edits. Coercion
// failures degrade to null and come back as details; they never fail the
// batch.
func (cc *ChartController) AutosaveBatchHandler(c echo.Context) error {
	var req autosaveBatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "invalid request body",
		})
	}

	result, err := cc.AutosaveService.ApplyBatch(req.PatientID, req.ChartID, req.Changes)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to apply autosave batch: " + err.Error(),
		})
	}

	metrics.AutosaveBatches.Inc()

	response := map[string]interface{}{
		"ok":            true,
		"chartId":       result.ChartID,
		"updatedFields": result.UpdatedFields,
	}
	if len(result.Details) > 0 {
		response["details"] = result.Details
	}
	return c.JSON(http.StatusOK, response)
}

func (cc *ChartController) GetChartHandler(c echo.Context) error {
	chartID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "chart id must be a number",
		})
	}

	chart, err := cc.AutosaveService.GetChart(chartID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to load chart: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":    true,
		"chart": chart,
	})
}

// HistoryHandler serves the paginated visit history from the audit store.
func (cc *ChartController) HistoryHandler(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.QueryParam("patientId"), 10, 64)
	if err != nil || patientID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "patientId query parameter is required",
		})
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	operation := c.QueryParam("operationType")

	var from, to *time.Time
	if raw := c.QueryParam("dateFrom"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"ok":    false,
				"error": "dateFrom must be YYYY-MM-DD",
			})
		}
		from = &t
	}
	if raw := c.QueryParam("dateTo"); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, time.Local)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"ok":    false,
				"error": "dateTo must be YYYY-MM-DD",
			})
		}
		// Inclusive end date: the filter is taken_at < dateTo + 1 day.
		end := t.Add(24 * time.Hour)
		to = &end
	}

	result, err := cc.SnapshotService.History(patientID, page, limit, operation, from, to)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to query visit history: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"items": result.Items,
		"pagination": map[string]interface{}{
			"total":      result.Total,
			"page":       result.Page,
			"limit":      result.Limit,
			"totalPages": result.TotalPages,
			"hasNext":    result.HasNext,
			"hasPrev":    result.HasPrev,
		},
	})
}
