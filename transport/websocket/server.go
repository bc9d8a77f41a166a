package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/rocketscienceinc/movechain/internal/entity"
)

const (
	maxMessageSize  = 16 << 20
	writeTimeout    = 10 * time.Second
	maxDialAttempts = 5
	redialDelay     = 2 * time.Second
)

type conductor interface {
	Ingest(ctx context.Context, record entity.Record) (bool, error)
	Log(ctx context.Context) ([]entity.Record, error)
}

type peer struct {
	id   string
	addr string
	conn *websocket.Conn
}

// Server gossips records between nodes. Both accepted and dialed connections are peers;
// every record committed locally is published to all of them.
type Server struct {
	logger    *zap.Logger
	conductor conductor

	mu    sync.RWMutex
	peers map[string]*peer

	handlers    map[string]func(ctx context.Context, peer *peer, message *Message) error
	redialDelay time.Duration
}

func New(logger *zap.Logger, conductor conductor) *Server {
	server := &Server{
		logger:    logger.With(zap.String("component", "gossip")),
		conductor: conductor,
		peers:     make(map[string]*peer),

		handlers:    make(map[string]func(context.Context, *peer, *Message) error),
		redialDelay: redialDelay,
	}

	server.handlers[actionEntryPublish] = server.handleEntryPublish
	server.handlers[actionLogSync] = server.handleLogSync
	server.handlers[actionLogRecords] = server.handleLogRecords

	return server
}

func (that *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/gossip", that.accept)

	return mux
}

// Start - serves the gossip endpoint until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           that.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", zap.Error(err))
		}

		that.closePeers()
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Connect - dials a peer, retrying a few times, and asks it for its log.
func (that *Server) Connect(ctx context.Context, url string) error {
	var err error
	for attempt := 1; attempt <= maxDialAttempts; attempt++ {
		if err = that.Dial(ctx, url); err == nil {
			return nil
		}

		that.logger.Warn("failed to dial peer", zap.String("peer", url), zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(that.redialDelay):
		}
	}

	return fmt.Errorf("failed to connect to %s: %w", url, err)
}

func (that *Server) Dial(ctx context.Context, url string) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, url, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	return that.attach(ctx, url, conn)
}

// attach - serves a dialed connection and asks the peer for its log. A peer that
// cannot be asked is dropped, so a redial never leaves two entries for one address.
func (that *Server) attach(ctx context.Context, url string, conn *websocket.Conn) error {
	p := that.register(url, conn)

	go that.serve(ctx, p)

	if err := that.send(ctx, p, actionLogSync, nil); err != nil {
		that.unregister(p)
		_ = p.conn.Close(websocket.StatusInternalError, "log request failed")

		return fmt.Errorf("failed to request log: %w", err)
	}

	return nil
}

// Publish - sends a record to every connected peer. Delivery is best effort.
func (that *Server) Publish(ctx context.Context, record entity.Record) error {
	that.mu.RLock()
	peers := make([]*peer, 0, len(that.peers))
	for _, p := range that.peers {
		peers = append(peers, p)
	}
	that.mu.RUnlock()

	var errs []error
	for _, p := range peers {
		if err := that.send(ctx, p, actionEntryPublish, record); err != nil {
			errs = append(errs, fmt.Errorf("peer %s: %w", p.addr, err))
		}
	}

	return errors.Join(errs...)
}

func (that *Server) Peers() int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.peers)
}

func (that *Server) accept(writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With(zap.String("method", "accept"))

	conn, err := websocket.Accept(writer, req, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		log.Error("failed to accept connection", zap.Error(err))
		return
	}

	p := that.register(req.RemoteAddr, conn)

	that.serve(req.Context(), p)
}

func (that *Server) register(addr string, conn *websocket.Conn) *peer {
	conn.SetReadLimit(maxMessageSize)

	p := &peer{id: uuid.NewString(), addr: addr, conn: conn}

	that.mu.Lock()
	that.peers[p.id] = p
	that.mu.Unlock()

	that.logger.Info("peer connected", zap.String("peer", addr), zap.String("id", p.id))

	return p
}

func (that *Server) unregister(p *peer) {
	that.mu.Lock()
	_, ok := that.peers[p.id]
	delete(that.peers, p.id)
	that.mu.Unlock()

	if ok {
		that.logger.Info("peer disconnected", zap.String("peer", p.addr), zap.String("id", p.id))
	}
}

func (that *Server) closePeers() {
	that.mu.Lock()
	peers := that.peers
	that.peers = make(map[string]*peer)
	that.mu.Unlock()

	for _, p := range peers {
		_ = p.conn.Close(websocket.StatusGoingAway, "shutting down")
	}
}

// serve - processes messages from a peer until the connection fails.
func (that *Server) serve(ctx context.Context, p *peer) {
	log := that.logger.With(zap.String("method", "serve"), zap.String("peer", p.addr))

	defer func() {
		that.unregister(p)
		_ = p.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var message Message
		if err := wsjson.Read(ctx, p.conn, &message); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				log.Warn("error reading message", zap.Error(err))
			}
			return
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", zap.String("action", message.Action))
			continue
		}

		if err := handler(ctx, p, &message); err != nil {
			log.Error("error processing message", zap.String("action", message.Action), zap.Error(err))
		}
	}
}

func (that *Server) send(ctx context.Context, p *peer, action string, payload any) error {
	message, err := newMessage(action, payload)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err = wsjson.Write(writeCtx, p.conn, message); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
