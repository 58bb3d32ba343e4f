package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultSkip  = 0
	DefaultLimit = 10
	MaxLimit     = 100
	MinLimit     = 1
)

// Params holds validated offset pagination parameters
type Params struct {
	Skip  int
	Limit int
}

// Normalize clamps skip to zero or more and limit into [MinLimit, MaxLimit].
func Normalize(skip, limit int) Params {
	if skip < 0 {
		skip = DefaultSkip
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return Params{Skip: skip, Limit: limit}
}

// Parse extracts and validates skip/limit from query parameters
func Parse(c *gin.Context) Params {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", strconv.Itoa(DefaultSkip)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	return Normalize(skip, limit)
}
