package api

import (
	"alcyxob/bmi-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
)

type InstructorHandler struct {
	instructorService service.InstructorService
	statsService      service.StatsService
}

func NewInstructorHandler(instructorService service.InstructorService, statsService service.StatsService) *InstructorHandler {
	return &InstructorHandler{instructorService: instructorService, statsService: statsService}
}

// Stats godoc
// @Summary Dashboard statistics
// @Tags Instructor
// @Produce json
// @Success 200 {object} domain.Stats
// @Failure 401 {object} errorResponse
// @Router /instructor/stats [get]
func (h *InstructorHandler) Stats(c *gin.Context) {
	stats, err := h.statsService.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// AllUsers godoc
// @Summary Every user with their latest BMI records
// @Tags Instructor
// @Produce json
// @Success 200 {array} domain.UserWithRecords
// @Failure 401 {object} errorResponse
// @Router /instructor/all-users [get]
func (h *InstructorHandler) AllUsers(c *gin.Context) {
	users, err := h.instructorService.AllUsersWithRecords(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// UserHistory godoc
// @Summary One user with their full BMI history
// @Tags Instructor
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errorResponse "Invalid userId"
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse "User not found"
// @Router /instructor/user/{userId}/bmi-history [get]
func (h *InstructorHandler) UserHistory(c *gin.Context) {
	userID, ok := objectIDParam(c, "userId")
	if !ok {
		return
	}
	history, err := h.instructorService.UserHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": history.User, "bmiRecords": history.BMIRecords})
}
