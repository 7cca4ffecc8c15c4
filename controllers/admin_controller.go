package controllers

import (
	"bizcard/services"
	"bizcard/utils"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// AdminController принимает результат внешнего биллинга: новый тариф пользователя
type AdminController struct {
	users *services.UserService
	log   *utils.Logger
}

type SetPlanRequest struct {
	Plan string `json:"plan" binding:"required"`
}

func NewAdminController(users *services.UserService, log *utils.Logger) *AdminController {
	return &AdminController{users: users, log: log.With("controller", "admin")}
}

// SetPlan PUT /api/admin/users/:id/plan
func (ac *AdminController) SetPlan(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || userID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req SetPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	user, err := ac.users.SetPlan(c.Request.Context(), uint(userID), req.Plan)
	switch {
	case err == nil:
		ac.log.Info("subscription plan changed", "user_id", user.ID, "plan", user.SubscriptionPlan)
		c.JSON(http.StatusOK, services.ToUserResponse(user))
	case errors.Is(err, services.ErrUnknownPlan):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"errors": gin.H{"plan": []string{"The selected plan is invalid."}}})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	default:
		ac.log.Error("set plan failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
