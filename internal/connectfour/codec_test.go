package connectfour

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
)

func TestBoard_JSON(t *testing.T) {
	board := EmptyBoard().
		Place(Rows-1, 0, SideA).
		Place(Rows-1, 6, SideB).
		Place(Rows-2, 0, SideB)

	t.Run("Encodes to the flat form", func(t *testing.T) {
		data, err := json.Marshal(board)
		require.NoError(t, err)

		var flat []int
		require.NoError(t, json.Unmarshal(data, &flat))
		require.Len(t, flat, Rows*Columns)
		assert.Equal(t, 1, flat[35])
		assert.Equal(t, 2, flat[41])
		assert.Equal(t, 2, flat[28])
	})

	t.Run("Flat and nested forms decode to the same board", func(t *testing.T) {
		grid := make([][]int, Rows)
		for row := range grid {
			grid[row] = make([]int, Columns)
			for column := range grid[row] {
				grid[row][column] = int(board[row][column])
			}
		}

		flatJSON, err := json.Marshal(board.Flat())
		require.NoError(t, err)
		gridJSON, err := json.Marshal(grid)
		require.NoError(t, err)

		var fromFlat, fromGrid Board
		require.NoError(t, json.Unmarshal(flatJSON, &fromFlat))
		require.NoError(t, json.Unmarshal(gridJSON, &fromGrid))

		assert.Equal(t, board, fromFlat)
		assert.Equal(t, board, fromGrid)
	})

	t.Run("Wrong cell count is reported", func(t *testing.T) {
		var decoded Board
		err := json.Unmarshal([]byte(`[0,0,0]`), &decoded)

		assert.ErrorIs(t, err, apperror.ErrMalformedBoard)
	})

	t.Run("Ragged nested rows are reported", func(t *testing.T) {
		var decoded Board
		err := json.Unmarshal([]byte(`[[0],[0],[0],[0],[0],[0]]`), &decoded)

		assert.ErrorIs(t, err, apperror.ErrMalformedBoard)
	})

	t.Run("Unknown cell value is reported", func(t *testing.T) {
		flat := make([]int, Rows*Columns)
		flat[3] = 7

		_, err := BoardFromFlat(flat)

		assert.ErrorIs(t, err, apperror.ErrMalformedBoard)
	})

	t.Run("Non-array payload is reported", func(t *testing.T) {
		var decoded Board
		err := json.Unmarshal([]byte(`"board"`), &decoded)

		assert.ErrorIs(t, err, apperror.ErrMalformedBoard)
	})
}
