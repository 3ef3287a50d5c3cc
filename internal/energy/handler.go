package energy

import (
	"diet-management-backend/auth"
	"diet-management-backend/internal/errors"
	"diet-management-backend/internal/utils"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Formulas(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"formulas": Formulas})
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := auth.UserID(c)
	calcs, err := h.service.Create(c.Request.Context(), userID, c.Param("patientId"), &form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, calcs)
}

func (h *Handler) List(c *gin.Context) {
	page, pageSize, err := utils.GetPaginationParams(c)
	if err != nil {
		c.Error(err)
		return
	}

	userID, _ := auth.UserID(c)
	calcs, err := h.service.List(c.Request.Context(), userID, c.Param("patientId"), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, calcs)
}

func (h *Handler) Patch(c *gin.Context) {
	var form PatchForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := auth.UserID(c)
	calcs, err := h.service.Patch(c.Request.Context(), userID, c.Param("patientId"), c.Param("itemId"), &form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, calcs)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.UserID(c)
	calcs, err := h.service.Delete(c.Request.Context(), userID, c.Param("patientId"), c.Param("itemId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, calcs)
}
