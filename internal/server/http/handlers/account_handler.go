package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/storefront/internal/server/http/dto"
)

// AccountHandler manages account endpoints.
type AccountHandler struct {
	facade AccountFacade
}

// NewAccountHandler constructs AccountHandler.
func NewAccountHandler(facade AccountFacade) *AccountHandler {
	return &AccountHandler{facade: facade}
}

// Summary handles GET /api/account.
func (h *AccountHandler) Summary(c *gin.Context) {
	account, err := h.facade.Account(c.Request.Context(), CurrentUserID(c))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AccountResponse{UserID: account.UserID, Email: account.Email, LoyaltyPoints: account.LoyaltyPoints})
}
