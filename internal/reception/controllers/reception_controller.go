package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/atmedrano/clinibox-backend/internal/common/apperr"
	"github.com/atmedrano/clinibox-backend/internal/reception/models"
	"github.com/atmedrano/clinibox-backend/internal/reception/services"
	"github.com/atmedrano/clinibox-backend/ws"
	"github.com/labstack/echo/v4"
)

type ReceptionController struct {
	ReceptionService *services.ReceptionService
}

func NewReceptionController(service *services.ReceptionService) *ReceptionController {
	return &ReceptionController{ReceptionService: service}
}

type registerPatientRequest struct {
	Name       string  `json:"name"`
	NationalID string  `json:"nationalId"`
	Phone      string  `json:"phone"`
	BirthDate  *string `json:"birthDate"`
}

func (rc *ReceptionController) RegisterPatientHandler(c echo.Context) error {
	var req registerPatientRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "invalid request body",
		})
	}
	if req.Name == "" || req.NationalID == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "name and nationalId are required",
		})
	}

	patientID, err := rc.ReceptionService.RegisterPatient(models.Patient{
		Name:       req.Name,
		NationalID: req.NationalID,
		Phone:      req.Phone,
		BirthDate:  req.BirthDate,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to register patient: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":        true,
		"patientId": patientID,
	})
}

type checkInRequest struct {
	PatientID int64 `json:"patientId"`
}

func (rc *ReceptionController) CheckInHandler(c echo.Context) error {
	var req checkInRequest
	if err := c.Bind(&req); err != nil || req.PatientID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "patientId is required",
		})
	}

	arrivalID, err := rc.ReceptionService.CheckIn(req.PatientID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to check in patient: " + err.Error(),
		})
	}

	// The transaction is committed; tell every connected floor view to
	// re-fetch queue and box state.
	ws.HubInstance.StateChanged(ws.DefaultRoom)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":        true,
		"arrivalId": arrivalID,
	})
}

func (rc *ReceptionController) WaitingQueueHandler(c echo.Context) error {
	queue, err := rc.ReceptionService.WaitingQueue()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to list waiting queue: " + err.Error(),
		})
	}
	if queue == nil {
		queue = []map[string]interface{}{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":    true,
		"queue": queue,
	})
}

func (rc *ReceptionController) GetPatientHandler(c echo.Context) error {
	patientID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": "patient id must be a number",
		})
	}

	patient, err := rc.ReceptionService.GetPatient(patientID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]interface{}{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": "failed to load patient: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":      true,
		"patient": patient,
	})
}
