package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atmedrano/clinibox-backend/internal/boxes/services"
	"github.com/atmedrano/clinibox-backend/internal/common/apperr"
	"github.com/atmedrano/clinibox-backend/internal/common/middlewares"
	"github.com/atmedrano/clinibox-backend/pkg/metrics"
	"github.com/atmedrano/clinibox-backend/ws"
	"github.com/labstack/echo/v4"
)

type AllocationController struct {
	AllocationService *services.AllocationService
}

func NewAllocationController(service *services.AllocationService) *AllocationController {
	return &AllocationController{AllocationService: service}
}

type assignRequest struct {
	BoxID          int64 `json:"boxId"`
	PatientID      int64 `json:"patientId"`
	ProfessionalID int64 `json:"professionalId"`
	// Clients send either a single minute count or an hours+minutes pair;
	// both collapse to one total before the service sees them.
	EstimatedMinutes int `json:"estimatedMinutes"`
	EstimatedHours   int `json:"estimatedHours"`
}

func (ac *AllocationController) AssignHandler(c echo.Context) error {
	var req assignRequest
	if err := c.Bind(&req); err != nil {
		metrics.AssignTotal.WithLabelValues("validation").Inc()
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "invalid request body",
		})
	}
	if req.BoxID == 0 || req.PatientID == 0 || req.ProfessionalID == 0 {
		metrics.AssignTotal.WithLabelValues("validation").Inc()
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "boxId, patientId and professionalId are required",
		})
	}

	totalMinutes := req.EstimatedHours*60 + req.EstimatedMinutes

	err := ac.AllocationService.Assign(req.BoxID, req.PatientID, req.ProfessionalID, totalMinutes)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrValidation):
			metrics.AssignTotal.WithLabelValues("validation").Inc()
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		case errors.Is(err, apperr.ErrNotFound):
			metrics.AssignTotal.WithLabelValues("not_found").Inc()
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		case errors.Is(err, apperr.ErrConflict):
			metrics.AssignTotal.WithLabelValues("conflict").Inc()
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"ok":    false,
				"error": err.Error() + "; try another box",
			})
		default:
			metrics.AssignTotal.WithLabelValues("error").Inc()
			return c.JSON(http.StatusInternalServerError, map[string]interface{}{
				"ok":    false,
				"error": "failed to assign box: " + err.Error(),
			})
		}
	}

	metrics.AssignTotal.WithLabelValues("ok").Inc()
	ws.HubInstance.StateChanged(ws.DefaultRoom)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok": true,
	})
}

type finalizeRequest struct {
	PatientID int64 `json:"patientId"`
}

func (ac *AllocationController) FinalizeHandler(c echo.Context) error {
	var req finalizeRequest
	if err := c.Bind(&req); err != nil || req.PatientID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "patientId is required",
		})
	}

	// The professional finalizes their own episode; the id comes from the
	// authenticated identity, not the request body. Receptionists (and
	// tokens without a numeric subject) finalize by patient alone.
	var professionalID int64
	if claims := middlewares.ClaimsFrom(c); claims != nil && claims.Role == middlewares.RoleProfessional {
		if id, err := strconv.ParseInt(claims.IDUser, 10, 64); err == nil {
			professionalID = id
		}
	}

	result, err := ac.AllocationService.Finalize(req.PatientID, professionalID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		if errors.Is(err, apperr.ErrConflict) {
			return c.JSON(http.StatusConflict, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to finalize: " + err.Error(),
		})
	}

	if result.AlreadyFinalized {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"ok":      true,
			"message": "visit already finalized",
		})
	}

	metrics.FinalizeTotal.Inc()
	ws.HubInstance.StateChanged(ws.DefaultRoom)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":      true,
		"message": "visit finalized",
	})
}

func (ac *AllocationController) ListBoxesHandler(c echo.Context) error {
	boxes, err := ac.AllocationService.ListBoxes()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to list boxes: " + err.Error(),
		})
	}
	if boxes == nil {
		boxes = []map[string]interface{}{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":    true,
		"boxes": boxes,
	})
}

// LastMutationHandler backs catch-up reconciliation: a client returning to
// the foreground compares updatedAt with its own watermark and re-fetches
// only when the server is newer.
func (ac *AllocationController) LastMutationHandler(c echo.Context) error {
	updatedAt, err := ac.AllocationService.LastMutation()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to read last mutation timestamp: " + err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":        true,
		"updatedAt": updatedAt.UTC().Format(time.RFC3339),
	})
}
