package api

import (
	"alcyxob/bmi-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type BMIHandler struct {
	bmiService    service.BMIService
	exportService service.ExportService
}

func NewBMIHandler(bmiService service.BMIService, exportService service.ExportService) *BMIHandler {
	return &BMIHandler{bmiService: bmiService, exportService: exportService}
}

type SubmitBMIRequest struct {
	WeightKg float64 `json:"weightKg"`
	HeightCm float64 `json:"heightCm"`
}

// Submit godoc
// @Summary Calculate and store a BMI measurement
// @Tags BMI
// @Accept json
// @Produce json
// @Param measurement body SubmitBMIRequest true "Weight in kg and height in cm"
// @Success 200 {object} domain.BMIRecord
// @Failure 400 {object} errorResponse "weightKg and heightCm required"
// @Failure 401 {object} errorResponse "Login required"
// @Router /bmi [post]
func (h *BMIHandler) Submit(c *gin.Context) {
	var req SubmitBMIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "weightKg and heightCm required")
		return
	}

	record, err := h.bmiService.Submit(c.Request.Context(), principalFromContext(c).UserID, req.WeightKg, req.HeightCm)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// History godoc
// @Summary BMI history of the logged-in user, newest first
// @Tags BMI
// @Produce json
// @Success 200 {array} domain.BMIRecord
// @Failure 401 {object} errorResponse
// @Router /bmi/history [get]
func (h *BMIHandler) History(c *gin.Context) {
	records, err := h.bmiService.History(c.Request.Context(), principalFromContext(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// ExportHistory godoc
// @Summary Export the BMI history as CSV
// @Description Uploads a CSV snapshot and returns a presigned download URL.
// @Tags BMI
// @Produce json
// @Success 200 {object} service.HistoryExport
// @Failure 401 {object} errorResponse
// @Failure 503 {object} errorResponse "Storage not configured"
// @Router /bmi/history/export [get]
func (h *BMIHandler) ExportHistory(c *gin.Context) {
	export, err := h.exportService.ExportHistory(c.Request.Context(), principalFromContext(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}
