package mealplan

import (
	"diet-management-backend/auth"
	"diet-management-backend/internal/errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /patients/:patientId/meal-plans
func (h *Handler) Create(c *gin.Context) {
	var form CreateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := auth.UserID(c)
	plans, err := h.service.Create(c.Request.Context(), userID, c.Param("patientId"), &form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, plans)
}

// List handles GET /patients/:patientId/meal-plans
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.UserID(c)
	plans, err := h.service.List(c.Request.Context(), userID, c.Param("patientId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

// Patch handles PATCH /patients/:patientId/meal-plans/:itemId
func (h *Handler) Patch(c *gin.Context) {
	var form PatchForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := auth.UserID(c)
	plans, err := h.service.Patch(c.Request.Context(), userID, c.Param("patientId"), c.Param("itemId"), &form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, plans)
}

// Delete handles DELETE /patients/:patientId/meal-plans/:itemId
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.UserID(c)
	plans, err := h.service.Delete(c.Request.Context(), userID, c.Param("patientId"), c.Param("itemId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, plans)
}
