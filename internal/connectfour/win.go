package connectfour

type direction struct {
	row, column int
}

// horizontal, vertical, diagonal down-right, diagonal up-right.
var directions = [...]direction{
	{row: 0, column: 1},
	{row: 1, column: 0},
	{row: 1, column: 1},
	{row: -1, column: 1},
}

// HasFourInRow checks only the lines through the last played cell.
func HasFourInRow(board Board, lastRow, lastColumn int, side Side) bool {
	if !inBounds(lastRow, lastColumn) || board[lastRow][lastColumn] != Occupied(side) {
		return false
	}

	for _, dir := range directions {
		count := 1 +
			countInDirection(board, lastRow, lastColumn, dir.row, dir.column, side) +
			countInDirection(board, lastRow, lastColumn, -dir.row, -dir.column, side)

		if count >= ToWin {
			return true
		}
	}

	return false
}

func countInDirection(board Board, row, column, deltaRow, deltaColumn int, side Side) int {
	count := 0
	target := Occupied(side)

	r, c := row+deltaRow, column+deltaColumn
	for inBounds(r, c) && board[r][c] == target {
		count++
		r += deltaRow
		c += deltaColumn
	}

	return count
}

// HasFourInRowFullScan slides a four-cell window over every orientation.
// Use it when the last move is unknown, e.g. for a board received from a peer.
func HasFourInRowFullScan(board Board, side Side) bool {
	target := Occupied(side)

	for row := 0; row < Rows; row++ {
		for column := 0; column < Columns; column++ {
			for _, dir := range directions {
				endRow := row + dir.row*(ToWin-1)
				endColumn := column + dir.column*(ToWin-1)
				if !inBounds(endRow, endColumn) {
					continue
				}

				if windowOwnedBy(board, row, column, dir, target) {
					return true
				}
			}
		}
	}

	return false
}

func windowOwnedBy(board Board, row, column int, dir direction, target Cell) bool {
	for i := 0; i < ToWin; i++ {
		if board[row+dir.row*i][column+dir.column*i] != target {
			return false
		}
	}

	return true
}
