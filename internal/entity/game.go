package entity

import (
	"fmt"
	"time"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/connectfour"
)

type GameStatus string

const (
	StatusWaiting    GameStatus = "waiting"
	StatusInProgress GameStatus = "in_progress"
	StatusFinished   GameStatus = "finished"
)

// Game is the shared document of an online game. Player1 plays SideA and
// Player2 plays SideB. WinnerID is empty for a draw.
type Game struct {
	ID              string            `json:"id"`
	Player1ID       string            `json:"player1_id"`
	Player1Name     string            `json:"player1_name"`
	Player2ID       string            `json:"player2_id,omitempty"`
	Player2Name     string            `json:"player2_name,omitempty"`
	Board           connectfour.Board `json:"board"`
	CurrentPlayerID string            `json:"current_player_id"`
	Status          GameStatus        `json:"status"`
	WinnerID        string            `json:"winner_id,omitempty"`
	Version         int64             `json:"version"`
	CreatedAt       time.Time         `json:"created_at"`
}

// GameUpdate is a conditional write: it applies only while the stored game is
// still at ExpectedVersion with ExpectedPlayerID to move. A nil Board keeps
// the stored board.
type GameUpdate struct {
	Board            *connectfour.Board `json:"board,omitempty"`
	CurrentPlayerID  string             `json:"current_player_id"`
	Status           GameStatus         `json:"status"`
	WinnerID         string             `json:"winner_id,omitempty"`
	ExpectedVersion  int64              `json:"expected_version"`
	ExpectedPlayerID string             `json:"expected_player_id"`
}

// GameSnapshot is one item of a game stream: the stored game, or the error
// standing in for a snapshot that could not be read.
type GameSnapshot struct {
	Game *Game
	Err  error
}

func NewGame(id string, host *Player) *Game {
	return &Game{
		ID:              id,
		Player1ID:       host.ID,
		Player1Name:     host.Name,
		Board:           connectfour.EmptyBoard(),
		CurrentPlayerID: host.ID,
		Status:          StatusWaiting,
		CreatedAt:       time.Now().UTC(),
	}
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusInProgress
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) HasPlayer(playerID string) bool {
	return playerID != "" && (playerID == that.Player1ID || playerID == that.Player2ID)
}

// SideOf maps a player to the side they play.
func (that *Game) SideOf(playerID string) (connectfour.Side, bool) {
	switch {
	case playerID == "":
		return 0, false
	case playerID == that.Player1ID:
		return connectfour.SideA, true
	case playerID == that.Player2ID:
		return connectfour.SideB, true
	default:
		return 0, false
	}
}

func (that *Game) OpponentOf(playerID string) string {
	if playerID == that.Player1ID {
		return that.Player2ID
	}
	return that.Player1ID
}

// Join seats the player as Player2 and starts the game. Joining a game the
// player is already part of is a no-op.
func (that *Game) Join(player *Player) error {
	if that.HasPlayer(player.ID) {
		return nil
	}

	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if !that.IsWaiting() || that.Player2ID != "" {
		return fmt.Errorf("%w: game id %s", apperror.ErrGameFull, that.ID)
	}

	that.Player2ID = player.ID
	that.Player2Name = player.Name
	that.Status = StatusInProgress

	return nil
}

// Apply writes the update if its expectations still hold. The caller bumps
// Version when persisting.
func (that *Game) Apply(update GameUpdate) error {
	if that.IsFinished() {
		return apperror.ErrGameFinished
	}

	if update.ExpectedVersion != that.Version {
		return fmt.Errorf("%w: expected version %d, stored version %d",
			apperror.ErrStaleUpdate, update.ExpectedVersion, that.Version)
	}

	if update.ExpectedPlayerID != that.CurrentPlayerID {
		return fmt.Errorf("%w: %q wrote while %q is to move",
			apperror.ErrNotYourTurn, update.ExpectedPlayerID, that.CurrentPlayerID)
	}

	if update.Board != nil {
		that.Board = *update.Board
	}

	that.CurrentPlayerID = update.CurrentPlayerID
	that.Status = update.Status
	that.WinnerID = update.WinnerID

	return nil
}

// Clone returns a deep copy; Board is an array so it is copied by value.
func (that *Game) Clone() *Game {
	if that == nil {
		return nil
	}

	clone := *that

	return &clone
}
