package service

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rocketscienceinc/connectfour-backend/internal/connectfour"
)

var ErrNoAvailableMoves = errors.New("no available moves")

type BotService interface {
	ChooseColumn(board connectfour.Board, self, opponent connectfour.Side) (int, error)
}

type botService struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBotService builds the opponent strategy. A nil rnd is seeded from the clock.
func NewBotService(rnd *rand.Rand) BotService {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint: gosec // it's ok
	}

	return &botService{rnd: rnd}
}

// ChooseColumn plays a winning drop if there is one, otherwise blocks the
// opponent's winning drop, otherwise picks a random open column. Columns are
// scanned in ascending order so the lowest winning or blocking column wins.
func (that *botService) ChooseColumn(board connectfour.Board, self, opponent connectfour.Side) (int, error) {
	openColumns := board.OpenColumns()
	if len(openColumns) == 0 {
		return -1, ErrNoAvailableMoves
	}

	if column, ok := findWinningColumn(board, openColumns, self); ok {
		return column, nil
	}

	if column, ok := findWinningColumn(board, openColumns, opponent); ok {
		return column, nil
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	return openColumns[that.rnd.Intn(len(openColumns))], nil
}

func findWinningColumn(board connectfour.Board, openColumns []int, side connectfour.Side) (int, bool) {
	for _, column := range openColumns {
		row, _ := board.LowestOpenRow(column)
		simulated := board.Place(row, column, side)

		if connectfour.HasFourInRow(simulated, row, column, side) {
			return column, true
		}
	}

	return -1, false
}
