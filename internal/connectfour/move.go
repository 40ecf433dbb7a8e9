package connectfour

// StatusKind tags a Status value.
type StatusKind uint8

const (
	StatusOngoing StatusKind = iota
	StatusWon
	StatusDraw
)

// Status is Ongoing, Won(side) or Draw. Winner is only set for Won.
type Status struct {
	Kind   StatusKind
	Winner Side
}

func Ongoing() Status {
	return Status{Kind: StatusOngoing}
}

func WonBy(side Side) Status {
	return Status{Kind: StatusWon, Winner: side}
}

func Draw() Status {
	return Status{Kind: StatusDraw}
}

func (s Status) IsOngoing() bool {
	return s.Kind == StatusOngoing
}

func (s Status) IsTerminal() bool {
	return s.Kind != StatusOngoing
}

func (s Status) String() string {
	switch s.Kind {
	case StatusWon:
		return "won:" + s.Winner.String()
	case StatusDraw:
		return "draw"
	default:
		return "ongoing"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Move is the result of a drop.
type Move struct {
	Board  Board
	Row    int
	Column int
	Side   Side
	Status Status
}

// Drop places the side's piece in the lowest open cell of the column and
// resolves the resulting status: a win through the placed cell first, then a
// full board as a draw. ok is false when the column is out of range or full.
func Drop(board Board, column int, side Side) (Move, bool) {
	row, ok := board.LowestOpenRow(column)
	if !ok {
		return Move{}, false
	}

	next := board.Place(row, column, side)

	status := Ongoing()
	switch {
	case HasFourInRow(next, row, column, side):
		status = WonBy(side)
	case next.IsFull():
		status = Draw()
	}

	return Move{
		Board:  next,
		Row:    row,
		Column: column,
		Side:   side,
		Status: status,
	}, true
}
