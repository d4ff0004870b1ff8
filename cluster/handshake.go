package cluster

import (
	"github.com/gorilla/websocket"

	"github.com/aclisp/nanoactor/id"
)

// handshake exchanges NodeId as the first application message on both
// sides of conn (spec.md §6): each side writes its own id, then reads
// the peer's, before any Call or Reply may be admitted. A malformed
// handshake aborts the connection with ErrFailedToUpgrade.
func handshake(conn *websocket.Conn, self id.NodeId) (id.NodeId, error) {
	if err := conn.WriteMessage(websocket.TextMessage, []byte(self.String())); err != nil {
		return id.NodeId{}, ErrFailedToUpgrade
	}

	msgType, data, err := conn.ReadMessage()
	if err != nil || msgType != websocket.TextMessage {
		return id.NodeId{}, ErrFailedToUpgrade
	}

	peer, err := id.ParseNodeId(string(data))
	if err != nil {
		return id.NodeId{}, ErrFailedToUpgrade
	}
	return peer, nil
}
