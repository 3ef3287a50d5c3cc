package patient

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

func (h *Handler) Create(c *gin.Context) {
	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := auth.UserID(c)
	p, err := h.service.Create(c.Request.Context(), userID, &form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

func (h *Handler) List(c *gin.Context) {
	page, pageSize, err := utils.GetPaginationParams(c)
	if err != nil {
		c.Error(err)
		return
	}

	userID, _ := auth.UserID(c)
	patients, meta, err := h.service.List(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": patients,
		"meta": meta,
	})
}

func (h *Handler) Show(c *gin.Context) {
	userID, _ := auth.UserID(c)
	p, err := h.service.Get(c.Request.Context(), userID, c.Param("patientId"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) Update(c *gin.Context) {
	var form Form
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	userID, _ := auth.UserID(c)
	p, err := h.service.Update(c.Request.Context(), userID, c.Param("patientId"), &form)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.UserID(c)
	if err := h.service.Delete(c.Request.Context(), userID, c.Param("patientId")); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Patient deleted"})
}
