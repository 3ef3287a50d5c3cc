package anamnesis

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

func (h *Handler) Create(c *gin.Context) {
	var form CreateForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := auth.UserID(c)
	doc, err := h.service.Create(c.Request.Context(), userID, c.Param("patientId"), &form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.UserID(c)
	doc, err := h.service.List(c.Request.Context(), userID, c.Param("patientId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Patch(c *gin.Context) {
	var form PatchForm
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := auth.UserID(c)
	doc, err := h.service.Patch(c.Request.Context(), userID, c.Param("patientId"), c.Param("itemId"), &form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}
