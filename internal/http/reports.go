package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jmehdipour/kuritterweight/internal/repository"
	echo "github.com/labstack/echo/v4"
)

func listWeightsHandler(chRepo repository.CHWeightsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := strings.TrimSpace(c.Param("userId"))
		if userID == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "user id required"})
		}

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		rows, err := chRepo.ListByUser(c.Request().Context(), userID, limit, offset)
		if err != nil {
			c.Logger().Errorf("clickhouse list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"user_id": userID,
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
