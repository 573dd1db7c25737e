package api

import (
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/service"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type DietPlanHandler struct {
	dietPlanService service.DietPlanService
}

func NewDietPlanHandler(dietPlanService service.DietPlanService) *DietPlanHandler {
	return &DietPlanHandler{dietPlanService: dietPlanService}
}

// --- DTOs ---

type CreateDietPlanRequest struct {
	UserID string `json:"userId"`
	domain.DietPlanInput
}

// UpdateDietPlanRequest accepts the editable fields. IsActive is decoded
// only to reject it.
type UpdateDietPlanRequest struct {
	domain.DietPlanUpdate
	IsActive *bool `json:"isActive"`
}

type DietPlanResponse struct {
	Msg      string           `json:"msg"`
	DietPlan *domain.DietPlan `json:"dietPlan"`
}

// Create godoc
// @Summary Create a diet plan for a user
// @Description The new plan becomes the user's only active plan.
// @Tags DietPlan
// @Accept json
// @Produce json
// @Param plan body CreateDietPlanRequest true "Diet plan"
// @Success 201 {object} DietPlanResponse
// @Failure 400 {object} errorResponse "Missing required fields"
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse "User not found"
// @Router /diet-plan/create [post]
func (h *DietPlanHandler) Create(c *gin.Context) {
	var req CreateDietPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}

	var userID primitive.ObjectID
	if req.UserID != "" {
		id, err := primitive.ObjectIDFromHex(req.UserID)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid userId")
			return
		}
		userID = id
	}

	plan, err := h.dietPlanService.Create(c.Request.Context(), principalFromContext(c).InstructorID, userID, req.DietPlanInput)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, DietPlanResponse{Msg: "Diet plan created successfully", DietPlan: plan})
}

// ListByUser godoc
// @Summary All diet plans of a user, newest first
// @Tags DietPlan
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} domain.DietPlan
// @Failure 400 {object} errorResponse "Invalid userId"
// @Failure 401 {object} errorResponse
// @Router /diet-plan/user/{userId} [get]
func (h *DietPlanHandler) ListByUser(c *gin.Context) {
	userID, ok := objectIDParam(c, "userId")
	if !ok {
		return
	}
	plans, err := h.dietPlanService.ListByUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// MyPlan godoc
// @Summary The logged-in user's active diet plan
// @Tags DietPlan
// @Produce json
// @Success 200 {object} domain.DietPlan
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse "No active diet plan found"
// @Router /diet-plan/my-plan [get]
func (h *DietPlanHandler) MyPlan(c *gin.Context) {
	plan, err := h.dietPlanService.GetActiveForUser(c.Request.Context(), principalFromContext(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// MyPlans godoc
// @Summary All diet plans of the logged-in user, newest first
// @Tags DietPlan
// @Produce json
// @Success 200 {array} domain.DietPlan
// @Failure 401 {object} errorResponse
// @Router /diet-plan/my-plans [get]
func (h *DietPlanHandler) MyPlans(c *gin.Context) {
	plans, err := h.dietPlanService.ListAllForUser(c.Request.Context(), principalFromContext(c).UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}

// Update godoc
// @Summary Update the content of a diet plan
// @Description Activation cannot be changed here; use create or deactivate.
// @Tags DietPlan
// @Accept json
// @Produce json
// @Param planId path string true "Plan ID"
// @Param plan body UpdateDietPlanRequest true "Fields to change"
// @Success 200 {object} DietPlanResponse
// @Failure 400 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse "Diet plan not found"
// @Router /diet-plan/{planId} [put]
func (h *DietPlanHandler) Update(c *gin.Context) {
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}

	var req UpdateDietPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if req.IsActive != nil {
		abortWithError(c, http.StatusBadRequest, "isActive cannot be updated; create a new plan or deactivate this one")
		return
	}

	plan, err := h.dietPlanService.Update(c.Request.Context(), planID, req.DietPlanUpdate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, DietPlanResponse{Msg: "Diet plan updated successfully", DietPlan: plan})
}

// Deactivate godoc
// @Summary Deactivate a diet plan
// @Tags DietPlan
// @Produce json
// @Param planId path string true "Plan ID"
// @Success 200 {object} errorResponse
// @Failure 401 {object} errorResponse
// @Failure 404 {object} errorResponse "Diet plan not found"
// @Router /diet-plan/{planId}/deactivate [put]
func (h *DietPlanHandler) Deactivate(c *gin.Context) {
	planID, ok := objectIDParam(c, "planId")
	if !ok {
		return
	}
	if err := h.dietPlanService.Deactivate(c.Request.Context(), planID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"msg": "Diet plan deactivated successfully"})
}

// ListAll godoc
// @Summary Every diet plan, newest first
// @Tags DietPlan
// @Produce json
// @Success 200 {array} domain.DietPlan
// @Failure 401 {object} errorResponse
// @Router /diet-plan/all [get]
func (h *DietPlanHandler) ListAll(c *gin.Context) {
	plans, err := h.dietPlanService.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, plans)
}
