package hub

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// wsConn adapts a server-side websocket to Conn. Writes from Send and from
// control-frame replies share one mutex.
type wsConn struct {
	conn      net.Conn
	mu        sync.Mutex
	closeOnce sync.Once
}

func newWSConn(conn net.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (c *wsConn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(deadline)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	return wsutil.WriteServerMessage(c.conn, ws.OpText, payload)
}

// Write is used for control-frame replies (pong, close).
func (c *wsConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(p)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}

// readLoop discards client data and returns once the peer closes or the connection breaks.
func (c *wsConn) readLoop() error {
	reader := wsutil.NewReader(c.conn, ws.StateServerSide)
	onControl := wsutil.ControlFrameHandler(c, ws.StateServerSide)

	for {
		hdr, err := reader.NextFrame()
		if err != nil {
			return err
		}
		if hdr.OpCode.IsControl() {
			if err := onControl(hdr, reader); err != nil {
				return err
			}
			continue
		}
		if err := reader.Discard(); err != nil {
			return err
		}
	}
}

// ServeWS upgrades the request and keeps the connection registered until the client goes away.
// The client id comes from the {clientID} route parameter or is generated.
func ServeWS(h *Hub, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		if clientID == "" {
			clientID = uuid.NewString()
		}

		netConn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Warn().Err(err).Str("client_id", clientID).Msg("websocket upgrade failed")
			return
		}
		// the HTTP server's read/write timeouts must not apply to a long-lived socket
		_ = netConn.SetDeadline(time.Time{})

		conn := newWSConn(netConn)
		h.Connect(conn, clientID)
		defer func() {
			h.Disconnect(conn, clientID)
			_ = conn.Close()
		}()

		logger.Info().Str("client_id", clientID).Msg("websocket connected")
		if err := conn.readLoop(); err != nil {
			logger.Debug().Err(err).Str("client_id", clientID).Msg("websocket closed")
		}
	}
}
