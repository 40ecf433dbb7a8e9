package usecase

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/connectfour-backend/internal/connectfour"
	"github.com/rocketscienceinc/connectfour-backend/internal/service"
)

const (
	HumanSide = connectfour.SideA
	CPUSide   = connectfour.SideB
)

// TurnState is an immutable snapshot of a local game. CanAct is false while
// the CPU is thinking and once the game is over.
type TurnState struct {
	Board      connectfour.Board  `json:"board"`
	SideToMove connectfour.Side   `json:"side_to_move"`
	Status     connectfour.Status `json:"status"`
	CanAct     bool               `json:"can_act"`
}

func initialTurnState() TurnState {
	return TurnState{
		Board:      connectfour.EmptyBoard(),
		SideToMove: HumanSide,
		Status:     connectfour.Ongoing(),
		CanAct:     true,
	}
}

// LocalGame plays the human (SideA) against the CPU (SideB). The CPU replies
// after a fixed delay; a pending reply is only cancelled by Reset.
type LocalGame struct {
	logger *slog.Logger
	bot    service.BotService
	delay  time.Duration

	mu         sync.Mutex
	state      TurnState
	generation uint64
	timer      *time.Timer

	feed *Feed[TurnState]
}

func NewLocalGame(logger *slog.Logger, bot service.BotService, delay time.Duration) *LocalGame {
	state := initialTurnState()

	return &LocalGame{
		logger: logger.With("component", "local_game"),
		bot:    bot,
		delay:  delay,
		state:  state,
		feed:   NewFeed(state),
	}
}

func (that *LocalGame) State() TurnState {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

func (that *LocalGame) Subscribe() (<-chan TurnState, func()) {
	return that.feed.Subscribe()
}

// SubmitMove drops a human piece. The state is returned unchanged when the
// game is over, the CPU is thinking or the column is out of range or full.
func (that *LocalGame) SubmitMove(column int) TurnState {
	that.mu.Lock()
	defer that.mu.Unlock()

	if !that.state.Status.IsOngoing() || that.state.SideToMove != HumanSide || !that.state.CanAct {
		return that.state
	}

	move, ok := connectfour.Drop(that.state.Board, column, HumanSide)
	if !ok {
		return that.state
	}

	next := TurnState{
		Board:      move.Board,
		SideToMove: HumanSide,
		Status:     move.Status,
	}

	if move.Status.IsOngoing() {
		next.SideToMove = CPUSide

		generation := that.generation
		that.timer = time.AfterFunc(that.delay, func() {
			that.opponentReply(generation)
		})
	}

	that.commit(next)

	return next
}

// Reset cancels a pending CPU reply and starts a new game.
func (that *LocalGame) Reset() TurnState {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.generation++
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}

	that.commit(initialTurnState())

	return that.state
}

// Close stops a pending CPU reply without publishing anything.
func (that *LocalGame) Close() {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.generation++
	if that.timer != nil {
		that.timer.Stop()
		that.timer = nil
	}
}

func (that *LocalGame) opponentReply(generation uint64) {
	log := that.logger.With("method", "opponentReply")

	that.mu.Lock()
	defer that.mu.Unlock()

	// a reset happened while the timer was firing
	if generation != that.generation || !that.state.Status.IsOngoing() || that.state.SideToMove != CPUSide {
		return
	}

	that.timer = nil

	column, err := that.bot.ChooseColumn(that.state.Board, CPUSide, HumanSide)
	if err != nil {
		log.Error("cpu could not choose a column", "error", err)
		return
	}

	move, ok := connectfour.Drop(that.state.Board, column, CPUSide)
	if !ok {
		log.Error("cpu chose an unplayable column", "column", column)
		return
	}

	next := TurnState{
		Board:      move.Board,
		SideToMove: CPUSide,
		Status:     move.Status,
	}

	if move.Status.IsOngoing() {
		next.SideToMove = HumanSide
		next.CanAct = true
	}

	log.Debug("cpu moved", "column", column, "status", move.Status.String())

	that.commit(next)
}

func (that *LocalGame) commit(state TurnState) {
	that.state = state
	that.feed.Publish(state)
}
