package handler

import (
	"fmt"
	"strconv"

	"backoffice/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// queryBool reads an optional boolean filter; absent means no filter
func queryBool(c *gin.Context, key string) (*bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be true or false", service.ErrValidation, key)
	}
	return &v, nil
}

// queryUUID reads an optional id filter
func queryUUID(c *gin.Context, key string) (*uuid.UUID, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a valid id", service.ErrValidation, key)
	}
	return &id, nil
}
