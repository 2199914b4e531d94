package api

import (
	"net/http"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
)

// wsHandler upgrades the connection and delegates to the ConnectionManager,
// which blocks until the client disconnects.
func (s *Server) wsHandler(c *gin.Context) {
	if s.connManager == nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "event stream not available"})
		return
	}

	opts := &websocket.AcceptOptions{}
	if s.cfg != nil && s.cfg.API != nil && len(s.cfg.API.AllowedWSOrigins) > 0 {
		opts.OriginPatterns = s.cfg.API.AllowedWSOrigins
	} else {
		opts.InsecureSkipVerify = true
	}

	conn, err := websocket.Accept(c.Writer, c.Request, opts)
	if err != nil {
		return
	}

	s.connManager.HandleConnection(c.Request.Context(), conn)
}
