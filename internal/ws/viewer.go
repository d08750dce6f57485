package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Viewer is one dashboard WebSocket connection scoped to a facility. Viewers
// only receive; inbound frames are drained to service pongs and detect close.
type Viewer struct {
	facilityID   string
	ws           *websocket.Conn
	send         chan []byte
	writeTimeout time.Duration
	logger       *zap.Logger
	onClose      func(*Viewer)
}

// NewViewer builds the connection wrapper.
func NewViewer(facilityID string, ws *websocket.Conn, writeTimeout time.Duration, logger *zap.Logger, onClose func(*Viewer)) *Viewer {
	return &Viewer{
		facilityID:   facilityID,
		ws:           ws,
		send:         make(chan []byte, 32),
		writeTimeout: writeTimeout,
		logger:       logger,
		onClose:      onClose,
	}
}

// FacilityID returns the facility the viewer is scoped to.
func (v *Viewer) FacilityID() string {
	return v.facilityID
}

// Start launches the pumps and blocks until the connection closes.
func (v *Viewer) Start(ctx context.Context) {
	go v.writePump(ctx)
	v.readPump(ctx)
}

func (v *Viewer) readPump(ctx context.Context) {
	defer v.cleanup()
	v.ws.SetReadLimit(4 * 1024)
	v.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
	v.ws.SetPongHandler(func(string) error {
		v.ws.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, _, err := v.ws.ReadMessage(); err != nil {
			v.logger.Debug("viewer connection closed", zap.String("facility_id", v.facilityID), zap.Error(err))
			return
		}
	}
}

func (v *Viewer) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-v.send:
			if !ok {
				_ = v.write(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.write(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}
}

// Send enqueues a message, dropping it if the viewer cannot keep up.
func (v *Viewer) Send(msg []byte) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Warn("attempted to send on closed viewer channel", zap.String("facility_id", v.facilityID))
		}
	}()
	select {
	case v.send <- msg:
	default:
		v.logger.Warn("dropping station update, viewer buffer full", zap.String("facility_id", v.facilityID))
	}
}

// Ping sends a ping frame.
func (v *Viewer) Ping() error {
	return v.write(websocket.PingMessage, nil)
}

func (v *Viewer) write(messageType int, data []byte) error {
	v.ws.SetWriteDeadline(time.Now().Add(v.writeTimeout))
	return v.ws.WriteMessage(messageType, data)
}

func (v *Viewer) cleanup() {
	close(v.send)
	_ = v.ws.Close()
	if v.onClose != nil {
		v.onClose(v)
	}
}
