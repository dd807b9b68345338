package tier

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/questai/mongodb-tools-api/internal/auth"
	"github.com/questai/mongodb-tools-api/internal/handlers"
)

type Handler struct {
	gate *Gate
}

func NewHandler(gate *Gate) *Handler {
	return &Handler{
		gate: gate,
	}
}

// TierLookup handles GET /subscription/tier.
//
// It reports the caller's resolved tier and whether the gate would admit them,
// without rejecting callers below the minimum.
func (h *Handler) TierLookup(c *gin.Context) {
	token, ok := auth.TokenFromContext(c)
	if !ok {
		handlers.Abort(c, http.StatusUnauthorized, handlers.CodeUnauthorized, "Could not validate credentials")
		return
	}

	lookup := h.gate.Resolve(c.Request.Context(), token)

	c.JSON(http.StatusOK, LookupResponse{
		Tier:      lookup.Tier,
		Defaulted: lookup.Defaulted,
		Required:  h.gate.Minimum(),
		Allowed:   lookup.Tier.AtLeast(h.gate.Minimum()),
	})
}
