package handlers

import "github.com/gin-gonic/gin"

// RealtimeHandler upgrades GET /ws. Anonymous clients may connect and only
// receive product room updates.
type RealtimeHandler struct {
	realtime Realtime
}

func NewRealtimeHandler(realtime Realtime) *RealtimeHandler {
	return &RealtimeHandler{realtime: realtime}
}

func (h *RealtimeHandler) Connect(c *gin.Context) {
	h.realtime.ServeWS(c.Writer, c.Request, CurrentUserID(c))
}
