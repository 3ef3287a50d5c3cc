package middleware

import (
	apiError "diet-management-backend/internal/errors"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func ErrorHandler(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		// detect any errors
		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err

			var apiErr *apiError.APIError

			// if it's our custom APIError
			if !errors.As(err, &apiErr) {
				// If it's a raw error we didn't wrap, treat as Internal
				apiErr = apiError.Internal(err)
			}

			event := log.Info()
			if apiErr.Status >= 500 {
				event = log.Error()
			}
			event.
				Str("request_id", c.GetString(RequestIDKey)).
				Int("status", apiErr.Status).
				Err(apiErr.Internal).
				Msg(apiErr.Message)

			c.AbortWithStatusJSON(apiErr.Status, apiErr)
		}
	}
}
