package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/internal/usecase"
)

const (
	actionLocalNew     = "local:new"
	actionLocalTurn    = "local:turn"
	actionLocalReset   = "local:reset"
	actionLocalState   = "local:state"
	actionOnlineWatch  = "online:watch"
	actionOnlineAnswer = "online:answer"
	actionOnlineTurn   = "online:turn"
	actionOnlineState  = "online:state"
	actionLobbyWatch   = "lobby:watch"
	actionLobbyState   = "lobby:state"
	actionError        = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is shared by requests and responses; each action reads the fields
// it needs.
type Payload struct {
	PlayerID string `json:"player_id,omitempty"`
	GameID   string `json:"game_id,omitempty"`
	Column   *int   `json:"column,omitempty"`
	Answer   string `json:"answer,omitempty"`

	Local  *usecase.TurnState   `json:"local,omitempty"`
	Online *usecase.OnlineState `json:"online,omitempty"`
	Lobby  *LobbyState          `json:"lobby,omitempty"`

	Error string `json:"error,omitempty"`
}

// LobbyState lists the games waiting for a second player.
type LobbyState struct {
	Games []*entity.Game `json:"games"`
}
