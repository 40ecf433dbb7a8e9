package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/internal/pkg"
	"github.com/rocketscienceinc/connectfour-backend/internal/service"
	"github.com/rocketscienceinc/connectfour-backend/internal/usecase"
)

const (
	sessionCookie = "user_session"
	writeTimeout  = 10 * time.Second
)

type gameStore interface {
	Subscribe(ctx context.Context, gameID string) (<-chan entity.GameSnapshot, error)
	SubmitUpdate(ctx context.Context, gameID string, update entity.GameUpdate) error
	WatchWaitingGames(ctx context.Context) (<-chan []*entity.Game, error)
}

type quizService interface {
	RequestQuizChallenge(ctx context.Context) (*entity.QuizChallenge, error)
}

type handlerFunc func(ctx context.Context, sess *session, msg *Message) error

type Server struct {
	logger   *slog.Logger
	bot      service.BotService
	cpuDelay time.Duration
	games    gameStore
	quiz     quizService

	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, bot service.BotService, cpuDelay time.Duration, games gameStore, quiz quizService) *Server {
	server := &Server{
		logger:   logger.With("component", "websocket"),
		bot:      bot,
		cpuDelay: cpuDelay,
		games:    games,
		quiz:     quiz,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		handlers: make(map[string]handlerFunc),
	}

	server.handlers[actionLocalNew] = server.handleLocalNew
	server.handlers[actionLocalTurn] = server.handleLocalTurn
	server.handlers[actionLocalReset] = server.handleLocalReset
	server.handlers[actionOnlineWatch] = server.handleOnlineWatch
	server.handlers[actionOnlineAnswer] = server.handleOnlineAnswer
	server.handlers[actionOnlineTurn] = server.handleOnlineTurn
	server.handlers[actionLobbyWatch] = server.handleLobbyWatch

	return server
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.upgradeToWebSocket(ctx, w, r)
	})

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shutdown websocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// upgradeToWebSocket - upgrades the connection and serves it until the client leaves.
func (that *Server) upgradeToWebSocket(ctx context.Context, writer http.ResponseWriter, req *http.Request) {
	log := that.logger.With("method", "upgradeToWebSocket")

	sessionID, header := that.sessionCookie(req)

	conn, err := that.upgrader.Upgrade(writer, req, header)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	sess := newSession(that.logger, conn, sessionID)
	defer sess.close()

	log.Info("WebSocket connection established", "session_id", sessionID)

	if err = that.handleMessages(ctx, sess); err != nil {
		log.Info("connection closed", "session_id", sessionID, "reason", err)
	}
}

// handleMessages - processes messages from the client.
func (that *Server) handleMessages(ctx context.Context, sess *session) error {
	log := that.logger.With("method", "handleMessages")

	for {
		_, reqBody, err := sess.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("error reading message: %w", err)
		}

		var message Message
		if err = json.Unmarshal(reqBody, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			sess.sendError("", "malformed message")
			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			sess.sendError(message.Action, "unknown action")
			continue
		}

		if err = handler(ctx, sess, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
			sess.sendError(message.Action, err.Error())
		}
	}
}

// sessionCookie returns the session id, creating one and its Set-Cookie
// header when the client has none.
func (that *Server) sessionCookie(req *http.Request) (string, http.Header) {
	cookie, err := req.Cookie(sessionCookie)
	if err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	cookie = &http.Cookie{
		Name:    sessionCookie,
		Value:   pkg.GenerateNewSessionID(),
		Expires: time.Now().Add(24 * time.Hour),
		Path:    "/ws",
	}

	header := http.Header{}
	header.Add("Set-Cookie", cookie.String())

	return cookie.Value, header
}

// session is one client connection with the games it drives.
type session struct {
	logger *slog.Logger
	conn   *websocket.Conn
	id     string

	writeMu sync.Mutex

	mu           sync.Mutex
	local        *usecase.LocalGame
	localStop    func()
	online       *usecase.OnlineGame
	onlineCancel context.CancelFunc
	lobbyCancel  context.CancelFunc
}

func newSession(logger *slog.Logger, conn *websocket.Conn, id string) *session {
	return &session{
		logger: logger.With("session_id", id),
		conn:   conn,
		id:     id,
	}
}

func (that *session) send(action string, payload Payload) {
	raw, err := json.Marshal(payload)
	if err != nil {
		that.logger.Error("failed to marshal payload", "action", action, "error", err)
		return
	}

	that.writeMu.Lock()
	defer that.writeMu.Unlock()

	_ = that.conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	if err = that.conn.WriteJSON(Message{Action: action, Payload: raw}); err != nil {
		that.logger.Warn("failed to send message", "action", action, "error", err)
	}
}

func (that *session) sendError(action, message string) {
	if action == "" {
		action = actionError
	}

	that.send(action, Payload{Error: message})
}

func (that *session) close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.stopLocal()
	that.stopOnline()
	that.stopLobby()

	if err := that.conn.Close(); err != nil {
		that.logger.Debug("failed to close connection", "error", err)
	}
}

// stopLocal, stopOnline and stopLobby expect mu to be held.
func (that *session) stopLocal() {
	if that.local == nil {
		return
	}

	that.local.Close()
	that.localStop()
	that.local = nil
}

func (that *session) stopOnline() {
	if that.online == nil {
		return
	}

	that.onlineCancel()
	that.online = nil
}

func (that *session) stopLobby() {
	if that.lobbyCancel == nil {
		return
	}

	that.lobbyCancel()
	that.lobbyCancel = nil
}
