package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Adjust the CORS policy if needed
		return true
	},
}

// ServeWS upgrades the connection and joins the requested room. The identity
// query parameter is the client's stable identity; reconnecting clients pass
// the same value to re-subscribe.
func ServeWS(hub *Hub) echo.HandlerFunc {
	return func(c echo.Context) error {
		room := c.QueryParam("room")
		if room == "" {
			room = DefaultRoom
		}
		identity := c.QueryParam("identity")

		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		client := &Client{Room: room, Identity: identity, Conn: conn, Send: make(chan []byte, 256)}
		hub.Register <- client

		go client.writePump()
		go client.readPump(hub)
		return nil
	}
}

func (c *Client) readPump(hub *Hub) {
	defer func() {
		hub.Unregister <- c
		c.Conn.Close()
	}()
	for {
		_, _, err := c.Conn.ReadMessage()
		if err != nil {
			break
		}
		// Clients have nothing to say; the channel is server to client only.
	}
}

func (c *Client) writePump() {
	for message := range c.Send {
		err := c.Conn.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			break
		}
	}
	c.Conn.Close()
}
