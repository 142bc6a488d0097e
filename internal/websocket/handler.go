package websocket

import (
	"context"
	"sync"

	"ai-search-be/pkg/gateway"
	"ai-search-be/pkg/protocol"
)

// ServeWs runs one session over conn and returns once the session and both
// pumps have stopped.
func ServeWs(ctx context.Context, hub *Hub, gw *gateway.Gateway, conn Conn, params protocol.Params, userID string, sendBuffer int) error {
	client := NewClient(hub, conn, userID, sendBuffer, hub.logger)
	client.session = gw.NewSession()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	client.cancel = cancel

	hub.Register(client)
	defer hub.Unregister(client)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		client.writePump()
	}()
	go func() {
		defer wg.Done()
		client.readPump()
	}()

	err := client.session.Run(ctx, params, client.inbound, client)
	client.Finish()
	wg.Wait()
	return err
}
