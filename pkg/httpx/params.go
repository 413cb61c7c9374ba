package httpx

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// ErrBadID возвращается, если идентификатор в пути не положительное целое.
var ErrBadID = errors.New("invalid id")

// ParseOrderID читает :id из пути и проверяет, что это положительное int64.
func ParseOrderID(c *gin.Context) (int64, error) {
	raw := strings.TrimSpace(c.Param("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadID
	}
	return id, nil
}
