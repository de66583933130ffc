package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsPingInterval  = 30 * time.Second
	wsReadDeadline  = 60 * time.Second
	wsWriteDeadline = 10 * time.Second
)

// runSubscription sends one subscribe frame and then pumps messages into
// handle until ctx is cancelled, the peer goes silent past the read
// deadline, or handle returns an error. A ping loop keeps the connection
// alive; cancellation closes the socket to unblock the reader.
func runSubscription(ctx context.Context, conn *websocket.Conn, subscribe []byte, handle func(msg []byte) error) error {
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	if err := conn.WriteMessage(websocket.TextMessage, subscribe); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if err := handle(msg); err != nil {
			return err
		}
	}
}
