package pkg

import (
	"strings"

	"github.com/google/uuid"
)

const gameIDLength = 8

// GenerateGameID returns a short id that players can share to join a game.
func GenerateGameID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:gameIDLength])
}

func GenerateNewSessionID() string {
	return uuid.NewString()
}
