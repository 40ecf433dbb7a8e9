// Package connectfour holds the rules of connect four: the board, gravity drops
// and four-in-a-row detection. Every operation works on Board values, so a
// move always produces a new board and never touches the previous one.
package connectfour

const (
	Rows    = 6
	Columns = 7
	ToWin   = 4
)

// Side is one of the two competing identities of a game.
type Side uint8

const (
	SideA Side = 1
	SideB Side = 2
)

func (s Side) Opponent() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

func (s Side) String() string {
	switch s {
	case SideA:
		return "A"
	case SideB:
		return "B"
	default:
		return "-"
	}
}

// Cell is either Empty or occupied by a side. The zero value is Empty.
type Cell uint8

const Empty Cell = 0

func Occupied(side Side) Cell {
	return Cell(side)
}

func (c Cell) IsEmpty() bool {
	return c == Empty
}

// Owner returns the side occupying the cell; ok is false for an empty cell.
func (c Cell) Owner() (Side, bool) {
	if c == Empty {
		return 0, false
	}
	return Side(c), true
}

// Board is a Rows x Columns grid, row 0 is the top and Rows-1 the bottom.
type Board [Rows][Columns]Cell

func EmptyBoard() Board {
	return Board{}
}

func inBounds(row, column int) bool {
	return row >= 0 && row < Rows && column >= 0 && column < Columns
}

// LowestOpenRow scans the column bottom-up and returns the first empty row.
// ok is false for a full or out-of-range column.
func (b Board) LowestOpenRow(column int) (int, bool) {
	if column < 0 || column >= Columns {
		return -1, false
	}

	for row := Rows - 1; row >= 0; row-- {
		if b[row][column].IsEmpty() {
			return row, true
		}
	}

	return -1, false
}

// Place returns a copy of the board with the cell set to the side.
// The row must come from LowestOpenRow; placing onto an occupied cell panics.
func (b Board) Place(row, column int, side Side) Board {
	if !inBounds(row, column) || !b[row][column].IsEmpty() {
		panic("connectfour: place on an occupied or out-of-range cell")
	}

	b[row][column] = Occupied(side)

	return b
}

// IsFull reports whether the top row has no empty cell, which under gravity
// means the whole board is full.
func (b Board) IsFull() bool {
	for column := 0; column < Columns; column++ {
		if b[0][column].IsEmpty() {
			return false
		}
	}

	return true
}

// OpenColumns lists the columns that still accept a drop, ascending.
func (b Board) OpenColumns() []int {
	columns := make([]int, 0, Columns)
	for column := 0; column < Columns; column++ {
		if _, ok := b.LowestOpenRow(column); ok {
			columns = append(columns, column)
		}
	}

	return columns
}

// Pieces counts the occupied cells.
func (b Board) Pieces() int {
	count := 0
	for row := range b {
		for column := range b[row] {
			if !b[row][column].IsEmpty() {
				count++
			}
		}
	}

	return count
}
