package utils

import (
	"diet-management-backend/internal/errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// GetPaginationParams reads page and page_size from the query string.
// Missing values fall back to the defaults; present values must be
// positive integers.
func GetPaginationParams(c *gin.Context) (int, int, error) {
	page, err := positiveQuery(c, "page", DefaultPage)
	if err != nil {
		return 0, 0, err
	}
	pageSize, err := positiveQuery(c, "page_size", DefaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize, nil
}

func positiveQuery(c *gin.Context, key string, fallback int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errors.BadRequest(key+" must be a positive integer", err)
	}
	return n, nil
}

// ParseObjectID validates an identifier taken from the path or a token.
func ParseObjectID(raw, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errors.BadRequest("Invalid "+name, err)
	}
	return id, nil
}

// ParamObjectID is ParseObjectID applied to a path parameter.
func ParamObjectID(c *gin.Context, param string) (primitive.ObjectID, error) {
	return ParseObjectID(c.Param(param), param)
}
