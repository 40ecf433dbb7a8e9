package connectfour

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
)

// Flat returns the canonical wire form: Rows*Columns ints in row-major order,
// 0 for empty, 1 for SideA and 2 for SideB.
func (b Board) Flat() []int {
	cells := make([]int, 0, Rows*Columns)
	for row := 0; row < Rows; row++ {
		for column := 0; column < Columns; column++ {
			cells = append(cells, int(b[row][column]))
		}
	}

	return cells
}

func BoardFromFlat(cells []int) (Board, error) {
	var board Board

	if len(cells) != Rows*Columns {
		return board, fmt.Errorf("%w: expected %d cells, got %d", apperror.ErrMalformedBoard, Rows*Columns, len(cells))
	}

	for i, value := range cells {
		cell, err := cellFromWire(value)
		if err != nil {
			return Board{}, fmt.Errorf("cell %d: %w", i, err)
		}

		board[i/Columns][i%Columns] = cell
	}

	return board, nil
}

// BoardFromGrid decodes the legacy nested form, Rows lists of Columns ints.
func BoardFromGrid(grid [][]int) (Board, error) {
	var board Board

	if len(grid) != Rows {
		return board, fmt.Errorf("%w: expected %d rows, got %d", apperror.ErrMalformedBoard, Rows, len(grid))
	}

	for row, values := range grid {
		if len(values) != Columns {
			return Board{}, fmt.Errorf("%w: row %d has %d cells", apperror.ErrMalformedBoard, row, len(values))
		}

		for column, value := range values {
			cell, err := cellFromWire(value)
			if err != nil {
				return Board{}, fmt.Errorf("cell %d,%d: %w", row, column, err)
			}

			board[row][column] = cell
		}
	}

	return board, nil
}

func cellFromWire(value int) (Cell, error) {
	switch value {
	case 0:
		return Empty, nil
	case int(SideA), int(SideB):
		return Occupied(Side(value)), nil
	default:
		return Empty, fmt.Errorf("%w: unknown cell value %d", apperror.ErrMalformedBoard, value)
	}
}

func (b Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Flat())
}

// UnmarshalJSON accepts both the flat and the nested form.
func (b *Board) UnmarshalJSON(data []byte) error {
	var flat []int
	if err := json.Unmarshal(data, &flat); err == nil {
		board, err := BoardFromFlat(flat)
		if err != nil {
			return err
		}

		*b = board
		return nil
	}

	var grid [][]int
	if err := json.Unmarshal(data, &grid); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrMalformedBoard, err)
	}

	board, err := BoardFromGrid(grid)
	if err != nil {
		return err
	}

	*b = board

	return nil
}
