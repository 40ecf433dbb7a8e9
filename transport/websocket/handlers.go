package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/connectfour-backend/internal/usecase"
)

var (
	errNoLocalGame  = errors.New("no local game, send local:new first")
	errNoOnlineGame = errors.New("no online game, send online:watch first")
	errMissingField = errors.New("missing field")
)

func decodePayload(msg *Message) (Payload, error) {
	var payload Payload
	if len(msg.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}

// handleLocalNew starts a game against the CPU, replacing any previous one,
// and streams its state as local:state.
func (that *Server) handleLocalNew(_ context.Context, sess *session, _ *Message) error {
	game := usecase.NewLocalGame(sess.logger, that.bot, that.cpuDelay)
	states, unsubscribe := game.Subscribe()

	sess.mu.Lock()
	sess.stopLocal()
	sess.local = game
	sess.localStop = unsubscribe
	sess.mu.Unlock()

	go func() {
		for state := range states {
			sess.send(actionLocalState, Payload{Local: &state})
		}
	}()

	return nil
}

func (that *Server) handleLocalTurn(_ context.Context, sess *session, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	if payload.Column == nil {
		return fmt.Errorf("%w: column", errMissingField)
	}

	sess.mu.Lock()
	game := sess.local
	sess.mu.Unlock()

	if game == nil {
		return errNoLocalGame
	}

	// rejected moves change nothing, so the client still gets the current state
	before := game.State()
	if after := game.SubmitMove(*payload.Column); after == before {
		sess.send(actionLocalState, Payload{Local: &after})
	}

	return nil
}

func (that *Server) handleLocalReset(_ context.Context, sess *session, _ *Message) error {
	sess.mu.Lock()
	game := sess.local
	sess.mu.Unlock()

	if game == nil {
		return errNoLocalGame
	}

	game.Reset()

	return nil
}

// handleOnlineWatch follows an online game as the given player and streams
// its state as online:state. The session id is used when no player id is sent.
func (that *Server) handleOnlineWatch(ctx context.Context, sess *session, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	if payload.GameID == "" {
		return fmt.Errorf("%w: game_id", errMissingField)
	}

	playerID := payload.PlayerID
	if playerID == "" {
		playerID = sess.id
	}

	gameCtx, cancel := context.WithCancel(ctx)

	game := usecase.NewOnlineGame(sess.logger, payload.GameID, playerID, that.games, that.quiz)
	states, unsubscribe := game.Subscribe()

	sess.mu.Lock()
	sess.stopOnline()
	sess.online = game
	sess.onlineCancel = cancel
	sess.mu.Unlock()

	go func() {
		defer unsubscribe()

		if err := game.Run(gameCtx); err != nil {
			sess.logger.Warn("online game stopped", "game_id", payload.GameID, "error", err)
			sess.sendError(actionOnlineState, err.Error())
		}
	}()

	go func() {
		for state := range states {
			sess.send(actionOnlineState, Payload{Online: &state})
		}
	}()

	return nil
}

func (that *Server) handleOnlineAnswer(ctx context.Context, sess *session, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	game, err := sess.onlineGame()
	if err != nil {
		return err
	}

	return game.SubmitQuizAnswer(ctx, payload.Answer)
}

func (that *Server) handleOnlineTurn(ctx context.Context, sess *session, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		return err
	}

	if payload.Column == nil {
		return fmt.Errorf("%w: column", errMissingField)
	}

	game, err := sess.onlineGame()
	if err != nil {
		return err
	}

	return game.SubmitMove(ctx, *payload.Column)
}

// handleLobbyWatch streams the waiting games as lobby:state, again after every
// change, until the session ends or watches again.
func (that *Server) handleLobbyWatch(ctx context.Context, sess *session, _ *Message) error {
	lobbyCtx, cancel := context.WithCancel(ctx)

	lobby, err := that.games.WatchWaitingGames(lobbyCtx)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to watch lobby: %w", err)
	}

	sess.mu.Lock()
	sess.stopLobby()
	sess.lobbyCancel = cancel
	sess.mu.Unlock()

	go func() {
		for games := range lobby {
			sess.send(actionLobbyState, Payload{Lobby: &LobbyState{Games: games}})
		}
	}()

	return nil
}

func (that *session) onlineGame() (*usecase.OnlineGame, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.online == nil {
		return nil, errNoOnlineGame
	}

	return that.online, nil
}
