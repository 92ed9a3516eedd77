package websocket

import (
	"sync"
	"time"

	"auction-engine/internal/domain"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var _ domain.WebSocketConnection = (*WebSocketConnection)(nil)

// WebSocketConnection serializes writes; gorilla connections allow only one
// concurrent writer.
type WebSocketConnection struct {
	conn      *websocket.Conn
	userID    string
	auctionID string
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func NewWebSocketConnection(conn *websocket.Conn, userID, auctionID string) *WebSocketConnection {
	return &WebSocketConnection{
		conn:      conn,
		userID:    userID,
		auctionID: auctionID,
	}
}

func (wsc *WebSocketConnection) Send(message interface{}) error {
	wsc.writeMu.Lock()
	defer wsc.writeMu.Unlock()

	if err := wsc.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return wsc.conn.WriteJSON(message)
}

func (wsc *WebSocketConnection) Close() error {
	var err error
	wsc.closeOnce.Do(func() {
		wsc.writeMu.Lock()
		_ = wsc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "auction closed"),
			time.Now().Add(writeWait))
		wsc.writeMu.Unlock()
		err = wsc.conn.Close()
	})
	return err
}

func (wsc *WebSocketConnection) UserID() string {
	return wsc.userID
}

func (wsc *WebSocketConnection) AuctionID() string {
	return wsc.auctionID
}
