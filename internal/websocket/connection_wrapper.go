package websocket

import (
	"github.com/gorilla/websocket"
)

// gorillaConn adapts *websocket.Conn to Connection
type gorillaConn struct {
	*websocket.Conn
}

// wrapConn wraps an upgraded gorilla connection
func wrapConn(conn *websocket.Conn) Connection {
	return gorillaConn{Conn: conn}
}

// RemoteAddr returns the remote network address as text
func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}
