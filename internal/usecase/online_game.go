package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/connectfour"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

type OnlinePhase string

const (
	PhaseWaitingForOpponent OnlinePhase = "waiting_for_opponent"
	PhaseQuizPending        OnlinePhase = "quiz_pending"
	PhaseMyTurn             OnlinePhase = "my_turn"
	PhaseOpponentTurn       OnlinePhase = "opponent_turn"
	PhaseFinished           OnlinePhase = "finished"
)

type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
	OutcomeDraw Outcome = "draw"
)

const noVersion int64 = -1

// OnlineState is what one participant sees of an online game. The quiz
// answer is never part of it. Error holds a stream failure until the next
// snapshot replaces it.
type OnlineState struct {
	GameID     string            `json:"game_id"`
	Phase      OnlinePhase       `json:"phase"`
	Board      connectfour.Board `json:"board"`
	MySide     connectfour.Side  `json:"my_side"`
	QuizPrompt string            `json:"quiz_prompt,omitempty"`
	Outcome    Outcome           `json:"outcome,omitempty"`
	Message    string            `json:"message"`
	Version    int64             `json:"version"`
	Error      string            `json:"error,omitempty"`
}

type gameStore interface {
	Subscribe(ctx context.Context, gameID string) (<-chan entity.GameSnapshot, error)
	SubmitUpdate(ctx context.Context, gameID string, update entity.GameUpdate) error
}

type quizProvider interface {
	RequestQuizChallenge(ctx context.Context) (*entity.QuizChallenge, error)
}

// OnlineGame turns the remote game document into what the local player may
// do. Every snapshot replaces the previous one. A turn starts with a quiz;
// a wrong answer passes the turn to the opponent without a move.
//
// Turn bookkeeping is keyed by the document version, which changes on every
// stored write:
//   - quizVersion: a challenge was requested for this turn
//   - unlockedVersion: the quiz was passed (or skipped) for this turn
//   - forfeitVersion: the quiz was failed for this turn
type OnlineGame struct {
	logger   *slog.Logger
	gameID   string
	playerID string
	store    gameStore
	quiz     quizProvider

	mu              sync.Mutex
	game            *entity.Game
	state           OnlineState
	challenge       *entity.QuizChallenge
	quizVersion     int64
	unlockedVersion int64
	forfeitVersion  int64

	feed *Feed[OnlineState]
}

func NewOnlineGame(logger *slog.Logger, gameID, playerID string, store gameStore, quiz quizProvider) *OnlineGame {
	state := OnlineState{
		GameID:  gameID,
		Phase:   PhaseWaitingForOpponent,
		Board:   connectfour.EmptyBoard(),
		Message: messageFor(PhaseWaitingForOpponent, ""),
		Version: noVersion,
	}

	return &OnlineGame{
		logger:          logger.With("component", "online_game", "game_id", gameID, "player_id", playerID),
		gameID:          gameID,
		playerID:        playerID,
		store:           store,
		quiz:            quiz,
		state:           state,
		quizVersion:     noVersion,
		unlockedVersion: noVersion,
		forfeitVersion:  noVersion,
		feed:            NewFeed(state),
	}
}

func (that *OnlineGame) State() OnlineState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

func (that *OnlineGame) Subscribe() (<-chan OnlineState, func()) {
	return that.feed.Subscribe()
}

// Run follows the remote game until ctx is done or the store closes the stream.
// Unreadable snapshots are shown as the state's Error; a deleted game ends the
// run with apperror.ErrGameNotFound.
func (that *OnlineGame) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")

	updates, err := that.store.Subscribe(ctx, that.gameID)
	if err != nil {
		return fmt.Errorf("failed to subscribe to game: %w", err)
	}

	for snapshot := range updates {
		if snapshot.Err != nil {
			log.Error("game stream reported an error", "error", snapshot.Err)
			that.reportError(snapshot.Err)

			if errors.Is(snapshot.Err, apperror.ErrGameNotFound) {
				return snapshot.Err
			}
			continue
		}

		if err = that.HandleSnapshot(ctx, snapshot.Game); err != nil {
			log.Error("could not apply game snapshot", "error", err)

			if errors.Is(err, apperror.ErrPlayerNotInGame) {
				return err
			}
		}
	}

	if ctx.Err() != nil {
		return nil
	}

	return apperror.ErrSubscriptionClosed
}

// HandleSnapshot replaces the known game with a snapshot from the store.
// Snapshots older than or equal to the known version are ignored.
func (that *OnlineGame) HandleSnapshot(ctx context.Context, game *entity.Game) error {
	log := that.logger.With("method", "HandleSnapshot")

	that.mu.Lock()

	if that.game != nil && game.Version <= that.game.Version {
		that.mu.Unlock()
		return nil
	}

	mySide, ok := game.SideOf(that.playerID)
	if !ok {
		that.mu.Unlock()
		return fmt.Errorf("%w: game id %s", apperror.ErrPlayerNotInGame, game.ID)
	}

	that.game = game.Clone()
	that.checkBoard(log)

	next := that.baseState(mySide)

	needsQuiz := false

	switch {
	case game.IsFinished():
		next.Outcome = that.outcome()
		next.Phase = PhaseFinished
	case game.IsWaiting():
		next.Phase = PhaseWaitingForOpponent
	case game.CurrentPlayerID != that.playerID:
		next.Phase = PhaseOpponentTurn
	case that.unlockedVersion == game.Version:
		next.Phase = PhaseMyTurn
	default:
		next.Phase = PhaseQuizPending
		that.challenge = nil
		that.quizVersion = game.Version
		needsQuiz = true
	}

	next.Message = messageFor(next.Phase, next.Outcome)
	that.commit(next)

	that.mu.Unlock()

	if needsQuiz {
		that.startQuiz(ctx, game.Version)
	}

	return nil
}

// startQuiz requests a challenge for the turn at version. No vocabulary or a
// failing vocabulary source unlocks the turn without a quiz.
func (that *OnlineGame) startQuiz(ctx context.Context, version int64) {
	log := that.logger.With("method", "startQuiz")

	challenge, err := that.quiz.RequestQuizChallenge(ctx)
	if err != nil {
		log.Warn("vocabulary unavailable, skipping quiz", "error", err)
		challenge = nil
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	// the turn moved on while the challenge was being fetched
	if that.game == nil || that.game.Version != version || that.quizVersion != version {
		return
	}

	next := that.state

	if challenge == nil {
		that.unlockedVersion = version
		next.Phase = PhaseMyTurn
	} else {
		that.challenge = challenge
		next.QuizPrompt = challenge.PromptWord
	}

	next.Message = messageFor(next.Phase, next.Outcome)
	that.commit(next)
}

// SubmitQuizAnswer checks the answer to the pending challenge. A wrong answer
// forfeits the turn. It is a no-op outside of a pending quiz.
func (that *OnlineGame) SubmitQuizAnswer(ctx context.Context, answer string) error {
	that.mu.Lock()

	if that.state.Phase != PhaseQuizPending || that.challenge == nil || that.game == nil {
		that.mu.Unlock()
		return nil
	}

	game := that.game
	version := game.Version

	if that.forfeitVersion != version && that.challenge.Accepts(answer) {
		that.unlockedVersion = version
		that.challenge = nil

		next := that.state
		next.Phase = PhaseMyTurn
		next.QuizPrompt = ""
		next.Message = messageFor(next.Phase, "")
		that.commit(next)

		that.mu.Unlock()

		return nil
	}

	// once failed, the turn stays forfeited even if a retry is needed
	that.forfeitVersion = version

	update := entity.GameUpdate{
		CurrentPlayerID:  game.OpponentOf(that.playerID),
		Status:           entity.StatusInProgress,
		ExpectedVersion:  version,
		ExpectedPlayerID: that.playerID,
	}

	previous := that.state

	next := that.state
	next.Phase = PhaseOpponentTurn
	next.QuizPrompt = ""
	next.Message = messageFor(next.Phase, "")
	that.commit(next)

	that.mu.Unlock()

	if err := that.store.SubmitUpdate(ctx, that.gameID, update); err != nil {
		that.revert(version, previous)
		return fmt.Errorf("failed to forfeit turn: %w", err)
	}

	return nil
}

// SubmitMove plays the column against the last known board and persists the
// result. The state moves to the opponent's turn at once and goes back to
// the player's turn if the write fails. Invalid or out-of-turn moves are
// no-ops.
func (that *OnlineGame) SubmitMove(ctx context.Context, column int) error {
	that.mu.Lock()

	if that.state.Phase != PhaseMyTurn || that.game == nil || that.unlockedVersion != that.game.Version {
		that.mu.Unlock()
		return nil
	}

	game := that.game
	version := game.Version

	move, ok := connectfour.Drop(game.Board, column, that.state.MySide)
	if !ok {
		that.mu.Unlock()
		return nil
	}

	update := entity.GameUpdate{
		Board:            &move.Board,
		CurrentPlayerID:  game.OpponentOf(that.playerID),
		Status:           entity.StatusInProgress,
		ExpectedVersion:  version,
		ExpectedPlayerID: that.playerID,
	}

	switch move.Status.Kind {
	case connectfour.StatusWon:
		update.Status = entity.StatusFinished
		update.WinnerID = that.playerID
	case connectfour.StatusDraw:
		update.Status = entity.StatusFinished
	case connectfour.StatusOngoing:
	}

	previous := that.state

	next := that.state
	next.Board = move.Board
	next.Phase = PhaseOpponentTurn
	next.Message = messageFor(next.Phase, "")
	that.commit(next)

	that.mu.Unlock()

	if err := that.store.SubmitUpdate(ctx, that.gameID, update); err != nil {
		that.revert(version, previous)
		return fmt.Errorf("failed to submit move: %w", err)
	}

	return nil
}

// revert restores the state from before a failed write, unless a newer
// snapshot has arrived in the meantime.
func (that *OnlineGame) revert(version int64, previous OnlineState) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil || that.game.Version != version {
		return
	}

	that.commit(previous)
}

func (that *OnlineGame) baseState(mySide connectfour.Side) OnlineState {
	return OnlineState{
		GameID:  that.gameID,
		Board:   that.game.Board,
		MySide:  mySide,
		Version: that.game.Version,
	}
}

func (that *OnlineGame) outcome() Outcome {
	switch that.game.WinnerID {
	case "":
		return OutcomeDraw
	case that.playerID:
		return OutcomeWon
	default:
		return OutcomeLost
	}
}

// checkBoard reports a board that disagrees with the stored status. The
// snapshot is still applied: the store is the source of truth.
func (that *OnlineGame) checkBoard(log *slog.Logger) {
	if that.game.IsFinished() {
		return
	}

	for _, side := range []connectfour.Side{connectfour.SideA, connectfour.SideB} {
		if connectfour.HasFourInRowFullScan(that.game.Board, side) {
			log.Warn("game in progress already has four in a row", "side", side.String(), "version", that.game.Version)
		}
	}
}

func (that *OnlineGame) reportError(err error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	next := that.state
	next.Error = err.Error()
	that.commit(next)
}

func (that *OnlineGame) commit(state OnlineState) {
	that.state = state
	that.feed.Publish(state)
}

func messageFor(phase OnlinePhase, outcome Outcome) string {
	switch phase {
	case PhaseWaitingForOpponent:
		return "Waiting for an opponent to join"
	case PhaseQuizPending:
		return "Translate the word to unlock your turn"
	case PhaseMyTurn:
		return "Your turn"
	case PhaseOpponentTurn:
		return "Opponent's turn"
	case PhaseFinished:
		switch outcome {
		case OutcomeWon:
			return "You won!"
		case OutcomeLost:
			return "You lost"
		case OutcomeDraw:
			return "Draw"
		}
	}

	return ""
}
