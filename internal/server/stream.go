package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The dashboard is served from anywhere in demo mode.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// streamMessage is the envelope pushed to WebSocket clients. Channel
// identifies the stream; version is the hub stamp so clients can detect
// dropped snapshots.
type streamMessage struct {
	Channel string `json:"channel"`
	Version uint64 `json:"version"`
	Payload any    `json:"payload"`
}

// handleStream upgrades the connection and forwards every hub snapshot
// to the client. A slow client loses intermediate versions rather than
// backing up the publishers.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	if s.metrics != nil {
		s.metrics.IncrementStreams()
	}
	s.logger.Info("stream client connected", slog.String("remote", conn.RemoteAddr().String()))

	out := make(chan streamMessage, 64)
	done := make(chan struct{})

	quoteCh, cancelQuotes := s.feed.Updates().Subscribe(4)
	marketCh, cancelMarket := s.aggregator.Updates().Subscribe(4)
	balanceCh, cancelBalances := s.ledger.Updates().Subscribe(4)
	txCh, cancelTx := s.journal.Updates().Subscribe(4)
	portfolioCh, cancelPortfolio := s.valuation.Updates().Subscribe(4)
	alertCh, cancelAlerts := s.alerts.Updates().Subscribe(4)

	cleanup := func() {
		cancelQuotes()
		cancelMarket()
		cancelBalances()
		cancelTx()
		cancelPortfolio()
		cancelAlerts()
		if s.metrics != nil {
			s.metrics.DecrementStreams()
		}
	}

	// fan-in
	go func() {
		defer close(out)
		defer cleanup()
		for {
			select {
			case <-done:
				return
			case env, ok := <-quoteCh:
				if !ok {
					return
				}
				forward(out, streamMessage{Channel: "quotes", Version: env.Version, Payload: env.Payload})
			case env, ok := <-marketCh:
				if !ok {
					return
				}
				forward(out, streamMessage{Channel: "market", Version: env.Version, Payload: env.Payload})
			case env, ok := <-balanceCh:
				if !ok {
					return
				}
				forward(out, streamMessage{Channel: "balances", Version: env.Version, Payload: env.Payload})
			case env, ok := <-txCh:
				if !ok {
					return
				}
				forward(out, streamMessage{Channel: "transactions", Version: env.Version, Payload: env.Payload})
			case env, ok := <-portfolioCh:
				if !ok {
					return
				}
				forward(out, streamMessage{Channel: "portfolio", Version: env.Version, Payload: env.Payload})
			case env, ok := <-alertCh:
				if !ok {
					return
				}
				forward(out, streamMessage{Channel: "alerts", Version: env.Version, Payload: env.Payload})
			}
		}
	}()

	// reader: only consumed for close/pong detection
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// writer
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	defer conn.Close()
	for {
		select {
		case msg, ok := <-out:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Info("stream client disconnected", slog.Any("error", err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// forward enqueues without blocking, dropping the oldest message when
// the client cannot keep up.
func forward(out chan streamMessage, msg streamMessage) {
	select {
	case out <- msg:
	default:
		select {
		case <-out:
		default:
		}
		select {
		case out <- msg:
		default:
		}
	}
}
