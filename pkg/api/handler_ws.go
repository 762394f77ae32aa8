package api

import (
	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"
)

// wsHandler upgrades HTTP connections to WebSocket and delegates to the
// hub Manager. Adapted from the teacher's handler_ws.go: same
// websocket.Accept + blocking HandleConnection handoff. Origin validation
// is left to the front-end gateway (§6: push interface auth is the token
// exchanged over authenticate{}, not the HTTP upgrade itself).
func (s *Server) wsHandler(c *echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}

	s.hubManager.HandleConnection(c.Request().Context(), conn)
	return nil
}
