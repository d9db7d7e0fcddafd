package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/civicalert/civicalert-server/internal/proto"
	"github.com/civicalert/civicalert-server/internal/realtime"
)

// WSHandler upgrades HTTP connections and bridges them to the hub. The
// handshake carries no credentials; clients authenticate afterwards with
// ADMIN_AUTH/USER_AUTH messages.
type WSHandler struct {
	hub *realtime.Hub
	log *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub *realtime.Hub, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{hub: hub, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	client := realtime.NewClient()
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop decodes inbound frames and dispatches them to the hub. A frame
// that is not valid JSON gets an ERROR reply and the connection stays open;
// an unknown type is logged and ignored.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *realtime.Client) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var inbound proto.Inbound
		if err := json.Unmarshal(data, &inbound); err != nil {
			h.log.Warn().Err(err).Str("conn_id", client.ID).Msg("undecodable ws message")
			h.hub.ReplyError(client, "invalid message")
			continue
		}

		switch inbound.Type {
		case proto.InboundTypeAdminAuth:
			h.hub.AuthenticateAdmin(client, inbound.Token)
		case proto.InboundTypeUserAuth:
			h.hub.AuthenticateUser(client, inbound.Token)
		case proto.InboundTypePing:
			h.hub.Heartbeat(client)
		default:
			h.log.Debug().Str("conn_id", client.ID).Str("type", inbound.Type).Msg("ignoring unknown ws message type")
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *realtime.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
