package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/connectfour"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

var (
	errStoreDown      = errors.New("store down")
	errVocabularyDown = errors.New("vocabulary down")
)

type mockGameStore struct {
	mock.Mock
}

func (that *mockGameStore) Subscribe(ctx context.Context, gameID string) (<-chan entity.GameSnapshot, error) {
	args := that.Called(ctx, gameID)
	updates, _ := args.Get(0).(<-chan entity.GameSnapshot)
	return updates, args.Error(1)
}

func (that *mockGameStore) SubmitUpdate(ctx context.Context, gameID string, update entity.GameUpdate) error {
	args := that.Called(ctx, gameID, update)
	return args.Error(0)
}

type mockQuizProvider struct {
	mock.Mock
}

func (that *mockQuizProvider) RequestQuizChallenge(ctx context.Context) (*entity.QuizChallenge, error) {
	args := that.Called(ctx)
	challenge, _ := args.Get(0).(*entity.QuizChallenge)
	return challenge, args.Error(1)
}

func dogChallenge() *entity.QuizChallenge {
	return entity.NewQuizChallenge(&entity.VocabularyWord{Prompt: "perro", Answer: "dog"})
}

// snapshot is a game between p1 (SideA) and p2 (SideB).
func snapshot(version int64, currentPlayerID string, board connectfour.Board) *entity.Game {
	return &entity.Game{
		ID:              "G1",
		Player1ID:       "p1",
		Player2ID:       "p2",
		Board:           board,
		CurrentPlayerID: currentPlayerID,
		Status:          entity.StatusInProgress,
		Version:         version,
	}
}

func newOnlineGame(store *mockGameStore, quiz *mockQuizProvider) *OnlineGame {
	return NewOnlineGame(newTestLogger(), "G1", "p1", store, quiz)
}

// unlockedGame is p1's game at version 1 with the quiz already passed.
func unlockedGame(t *testing.T, store *mockGameStore, board connectfour.Board) *OnlineGame {
	t.Helper()

	quiz := &mockQuizProvider{}
	quiz.On("RequestQuizChallenge", mock.Anything).Return(dogChallenge(), nil).Once()

	game := newOnlineGame(store, quiz)
	require.NoError(t, game.HandleSnapshot(context.Background(), snapshot(1, "p1", board)))
	require.NoError(t, game.SubmitQuizAnswer(context.Background(), "dog"))
	require.Equal(t, PhaseMyTurn, game.State().Phase)

	return game
}

func TestOnlineGame_HandleSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("My turn starts with a quiz", func(t *testing.T) {
		// Given: a vocabulary with one word
		store := &mockGameStore{}
		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(dogChallenge(), nil).Once()
		game := newOnlineGame(store, quiz)

		// When: a snapshot says it is p1's turn
		err := game.HandleSnapshot(ctx, snapshot(1, "p1", connectfour.EmptyBoard()))

		// Then: the quiz is pending and the answer is not exposed
		require.NoError(t, err)

		state := game.State()
		assert.Equal(t, PhaseQuizPending, state.Phase)
		assert.Equal(t, "perro", state.QuizPrompt)
		assert.Equal(t, connectfour.SideA, state.MySide)
		assert.Equal(t, int64(1), state.Version)
		quiz.AssertExpectations(t)
	})

	t.Run("No vocabulary unlocks the turn", func(t *testing.T) {
		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(nil, nil).Once()
		game := newOnlineGame(&mockGameStore{}, quiz)

		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p1", connectfour.EmptyBoard())))

		assert.Equal(t, PhaseMyTurn, game.State().Phase)
	})

	t.Run("Vocabulary failure unlocks the turn", func(t *testing.T) {
		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(nil, errVocabularyDown).Once()
		game := newOnlineGame(&mockGameStore{}, quiz)

		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p1", connectfour.EmptyBoard())))

		assert.Equal(t, PhaseMyTurn, game.State().Phase)
	})

	t.Run("Opponent's turn", func(t *testing.T) {
		quiz := &mockQuizProvider{}
		game := newOnlineGame(&mockGameStore{}, quiz)

		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p2", connectfour.EmptyBoard())))

		state := game.State()
		assert.Equal(t, PhaseOpponentTurn, state.Phase)
		assert.Equal(t, "Opponent's turn", state.Message)
		quiz.AssertNotCalled(t, "RequestQuizChallenge", mock.Anything)
	})

	t.Run("Waiting for an opponent", func(t *testing.T) {
		game := newOnlineGame(&mockGameStore{}, &mockQuizProvider{})

		waiting := snapshot(0, "p1", connectfour.EmptyBoard())
		waiting.Player2ID = ""
		waiting.Status = entity.StatusWaiting

		require.NoError(t, game.HandleSnapshot(ctx, waiting))

		assert.Equal(t, PhaseWaitingForOpponent, game.State().Phase)
	})

	t.Run("Finished games report the outcome", func(t *testing.T) {
		tests := []struct {
			name     string
			winnerID string
			want     Outcome
			message  string
		}{
			{name: "won", winnerID: "p1", want: OutcomeWon, message: "You won!"},
			{name: "lost", winnerID: "p2", want: OutcomeLost, message: "You lost"},
			{name: "draw", winnerID: "", want: OutcomeDraw, message: "Draw"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				game := newOnlineGame(&mockGameStore{}, &mockQuizProvider{})

				finished := snapshot(9, "p1", connectfour.EmptyBoard())
				finished.Status = entity.StatusFinished
				finished.WinnerID = tt.winnerID

				require.NoError(t, game.HandleSnapshot(ctx, finished))

				state := game.State()
				assert.Equal(t, PhaseFinished, state.Phase)
				assert.Equal(t, tt.want, state.Outcome)
				assert.Equal(t, tt.message, state.Message)
			})
		}
	})

	t.Run("Older snapshots are ignored", func(t *testing.T) {
		game := newOnlineGame(&mockGameStore{}, &mockQuizProvider{})

		require.NoError(t, game.HandleSnapshot(ctx, snapshot(5, "p2", connectfour.EmptyBoard())))
		require.NoError(t, game.HandleSnapshot(ctx, snapshot(4, "p1", connectfour.EmptyBoard())))

		state := game.State()
		assert.Equal(t, int64(5), state.Version)
		assert.Equal(t, PhaseOpponentTurn, state.Phase)
	})

	t.Run("Stranger is rejected", func(t *testing.T) {
		game := NewOnlineGame(newTestLogger(), "G1", "p3", &mockGameStore{}, &mockQuizProvider{})

		err := game.HandleSnapshot(ctx, snapshot(1, "p1", connectfour.EmptyBoard()))

		require.ErrorIs(t, err, apperror.ErrPlayerNotInGame)
	})
}

func TestOnlineGame_SubmitQuizAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("Correct answer unlocks the turn", func(t *testing.T) {
		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(dogChallenge(), nil).Once()
		store := &mockGameStore{}
		game := newOnlineGame(store, quiz)
		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p1", connectfour.EmptyBoard())))

		// When: the answer matches ignoring case
		err := game.SubmitQuizAnswer(ctx, "DoG")

		// Then: the turn is unlocked without any write
		require.NoError(t, err)

		state := game.State()
		assert.Equal(t, PhaseMyTurn, state.Phase)
		assert.Empty(t, state.QuizPrompt)
		store.AssertNotCalled(t, "SubmitUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Wrong answer forfeits the turn", func(t *testing.T) {
		// Given: a pending quiz on a board with one piece
		board := connectfour.EmptyBoard().Place(connectfour.Rows-1, 3, connectfour.SideB)

		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(dogChallenge(), nil).Once()
		store := &mockGameStore{}
		store.On("SubmitUpdate", mock.Anything, "G1", entity.GameUpdate{
			CurrentPlayerID:  "p2",
			Status:           entity.StatusInProgress,
			ExpectedVersion:  1,
			ExpectedPlayerID: "p1",
		}).Return(nil).Once()

		game := newOnlineGame(store, quiz)
		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p1", board)))

		// When: the answer is wrong
		err := game.SubmitQuizAnswer(ctx, "cat")

		// Then: the turn passes to the opponent without a board change
		require.NoError(t, err)

		state := game.State()
		assert.Equal(t, PhaseOpponentTurn, state.Phase)
		assert.Equal(t, board, state.Board)
		store.AssertExpectations(t)

		// And: moving is not possible
		require.NoError(t, game.SubmitMove(ctx, 0))
		store.AssertNumberOfCalls(t, "SubmitUpdate", 1)
	})

	t.Run("Failed forfeit stays forfeited", func(t *testing.T) {
		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(dogChallenge(), nil).Once()
		store := &mockGameStore{}
		store.On("SubmitUpdate", mock.Anything, "G1", mock.Anything).Return(errStoreDown).Once()
		store.On("SubmitUpdate", mock.Anything, "G1", mock.Anything).Return(nil).Once()

		game := newOnlineGame(store, quiz)
		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p1", connectfour.EmptyBoard())))

		// When: the forfeit cannot be stored
		err := game.SubmitQuizAnswer(ctx, "cat")

		// Then: the quiz is shown again
		require.ErrorIs(t, err, errStoreDown)
		assert.Equal(t, PhaseQuizPending, game.State().Phase)
		assert.Equal(t, "perro", game.State().QuizPrompt)

		// When: the right answer is given afterwards
		err = game.SubmitQuizAnswer(ctx, "dog")

		// Then: the forfeit is retried instead of unlocking the turn
		require.NoError(t, err)
		assert.Equal(t, PhaseOpponentTurn, game.State().Phase)
		store.AssertNumberOfCalls(t, "SubmitUpdate", 2)
	})

	t.Run("Answer outside of a quiz is ignored", func(t *testing.T) {
		store := &mockGameStore{}
		game := newOnlineGame(store, &mockQuizProvider{})
		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p2", connectfour.EmptyBoard())))

		before := game.State()

		require.NoError(t, game.SubmitQuizAnswer(ctx, "dog"))

		assert.Equal(t, before, game.State())
		store.AssertNotCalled(t, "SubmitUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Next turn asks a new quiz", func(t *testing.T) {
		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(dogChallenge(), nil).Twice()
		game := newOnlineGame(&mockGameStore{}, quiz)

		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p1", connectfour.EmptyBoard())))
		require.NoError(t, game.SubmitQuizAnswer(ctx, "dog"))
		require.NoError(t, game.HandleSnapshot(ctx, snapshot(2, "p2", connectfour.EmptyBoard())))
		require.NoError(t, game.HandleSnapshot(ctx, snapshot(3, "p1", connectfour.EmptyBoard())))

		assert.Equal(t, PhaseQuizPending, game.State().Phase)
		quiz.AssertExpectations(t)
	})
}

func TestOnlineGame_SubmitMove(t *testing.T) {
	ctx := context.Background()

	t.Run("Move is persisted and the turn passes", func(t *testing.T) {
		want := connectfour.EmptyBoard().Place(connectfour.Rows-1, 3, connectfour.SideA)

		store := &mockGameStore{}
		store.On("SubmitUpdate", mock.Anything, "G1", entity.GameUpdate{
			Board:            &want,
			CurrentPlayerID:  "p2",
			Status:           entity.StatusInProgress,
			ExpectedVersion:  1,
			ExpectedPlayerID: "p1",
		}).Return(nil).Once()

		game := unlockedGame(t, store, connectfour.EmptyBoard())

		// When: p1 drops in column 3
		err := game.SubmitMove(ctx, 3)

		// Then: the move is shown at once and it is the opponent's turn
		require.NoError(t, err)

		state := game.State()
		assert.Equal(t, PhaseOpponentTurn, state.Phase)
		assert.Equal(t, want, state.Board)
		store.AssertExpectations(t)

		// And: a second move before the next snapshot is ignored
		require.NoError(t, game.SubmitMove(ctx, 4))
		store.AssertNumberOfCalls(t, "SubmitUpdate", 1)
	})

	t.Run("Winning move finishes the game", func(t *testing.T) {
		board := connectfour.EmptyBoard().
			Place(5, 0, connectfour.SideA).
			Place(5, 1, connectfour.SideA).
			Place(5, 2, connectfour.SideA).
			Place(4, 0, connectfour.SideB).
			Place(4, 1, connectfour.SideB).
			Place(4, 2, connectfour.SideB)

		store := &mockGameStore{}
		store.On("SubmitUpdate", mock.Anything, "G1", mock.MatchedBy(func(update entity.GameUpdate) bool {
			return update.Status == entity.StatusFinished && update.WinnerID == "p1"
		})).Return(nil).Once()

		game := unlockedGame(t, store, board)

		require.NoError(t, game.SubmitMove(ctx, 3))
		store.AssertExpectations(t)
	})

	t.Run("Out of range column is ignored", func(t *testing.T) {
		store := &mockGameStore{}
		game := unlockedGame(t, store, connectfour.EmptyBoard())

		before := game.State()

		require.NoError(t, game.SubmitMove(ctx, 7))

		assert.Equal(t, before, game.State())
		store.AssertNotCalled(t, "SubmitUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Move before the quiz is ignored", func(t *testing.T) {
		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(dogChallenge(), nil).Once()
		store := &mockGameStore{}
		game := newOnlineGame(store, quiz)
		require.NoError(t, game.HandleSnapshot(ctx, snapshot(1, "p1", connectfour.EmptyBoard())))

		require.NoError(t, game.SubmitMove(ctx, 3))

		assert.Equal(t, PhaseQuizPending, game.State().Phase)
		store.AssertNotCalled(t, "SubmitUpdate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Failed write reverts to my turn", func(t *testing.T) {
		store := &mockGameStore{}
		store.On("SubmitUpdate", mock.Anything, "G1", mock.Anything).Return(apperror.ErrStaleUpdate).Once()
		store.On("SubmitUpdate", mock.Anything, "G1", mock.Anything).Return(nil).Once()

		game := unlockedGame(t, store, connectfour.EmptyBoard())

		// When: the store rejects the move
		err := game.SubmitMove(ctx, 3)

		// Then: the board is restored and the move can be retried
		require.ErrorIs(t, err, apperror.ErrStaleUpdate)

		state := game.State()
		assert.Equal(t, PhaseMyTurn, state.Phase)
		assert.Equal(t, connectfour.EmptyBoard(), state.Board)

		require.NoError(t, game.SubmitMove(ctx, 3))
		assert.Equal(t, PhaseOpponentTurn, game.State().Phase)
		store.AssertNumberOfCalls(t, "SubmitUpdate", 2)
	})
}

func TestOnlineGame_Run(t *testing.T) {
	t.Run("Follows snapshots until the stream closes", func(t *testing.T) {
		updates := make(chan entity.GameSnapshot, 2)
		updates <- entity.GameSnapshot{Game: snapshot(1, "p2", connectfour.EmptyBoard())}
		updates <- entity.GameSnapshot{Game: snapshot(2, "p1", connectfour.EmptyBoard().Place(5, 0, connectfour.SideB))}
		close(updates)

		store := &mockGameStore{}
		store.On("Subscribe", mock.Anything, "G1").Return((<-chan entity.GameSnapshot)(updates), nil).Once()
		quiz := &mockQuizProvider{}
		quiz.On("RequestQuizChallenge", mock.Anything).Return(nil, nil).Once()

		game := newOnlineGame(store, quiz)

		err := game.Run(context.Background())

		require.ErrorIs(t, err, apperror.ErrSubscriptionClosed)

		state := game.State()
		assert.Equal(t, int64(2), state.Version)
		assert.Equal(t, PhaseMyTurn, state.Phase)
	})

	t.Run("Subscription failure is returned", func(t *testing.T) {
		store := &mockGameStore{}
		store.On("Subscribe", mock.Anything, "G1").Return(nil, apperror.ErrGameNotFound).Once()

		err := newOnlineGame(store, &mockQuizProvider{}).Run(context.Background())

		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Cancelled context ends quietly", func(t *testing.T) {
		updates := make(chan entity.GameSnapshot)
		close(updates)

		store := &mockGameStore{}
		store.On("Subscribe", mock.Anything, "G1").Return((<-chan entity.GameSnapshot)(updates), nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		require.NoError(t, newOnlineGame(store, &mockQuizProvider{}).Run(ctx))
	})

	t.Run("Unreadable snapshot is reported until the next one", func(t *testing.T) {
		// Given: a stream with a snapshot that could not be decoded between two games
		updates := make(chan entity.GameSnapshot, 3)
		updates <- entity.GameSnapshot{Game: snapshot(1, "p2", connectfour.EmptyBoard())}
		updates <- entity.GameSnapshot{Err: apperror.ErrMalformedBoard}

		store := &mockGameStore{}
		store.On("Subscribe", mock.Anything, "G1").Return((<-chan entity.GameSnapshot)(updates), nil).Once()

		game := newOnlineGame(store, &mockQuizProvider{})

		done := make(chan error, 1)
		go func() {
			done <- game.Run(context.Background())
		}()

		// Then: the error is part of the published state
		require.Eventually(t, func() bool {
			return game.State().Error != ""
		}, time.Second, 5*time.Millisecond)
		assert.Contains(t, game.State().Error, apperror.ErrMalformedBoard.Error())
		assert.Equal(t, PhaseOpponentTurn, game.State().Phase)

		// When: a readable snapshot follows
		updates <- entity.GameSnapshot{Game: snapshot(2, "p2", connectfour.EmptyBoard())}
		close(updates)

		// Then: the error is cleared
		require.ErrorIs(t, <-done, apperror.ErrSubscriptionClosed)
		assert.Empty(t, game.State().Error)
		assert.Equal(t, int64(2), game.State().Version)
	})

	t.Run("Deleted game ends the run", func(t *testing.T) {
		updates := make(chan entity.GameSnapshot, 2)
		updates <- entity.GameSnapshot{Game: &entity.Game{ID: "G1", Player1ID: "p1", Status: entity.StatusWaiting, Version: 0}}
		updates <- entity.GameSnapshot{Err: apperror.ErrGameNotFound}

		store := &mockGameStore{}
		store.On("Subscribe", mock.Anything, "G1").Return((<-chan entity.GameSnapshot)(updates), nil).Once()

		game := newOnlineGame(store, &mockQuizProvider{})

		err := game.Run(context.Background())

		require.ErrorIs(t, err, apperror.ErrGameNotFound)
		assert.Equal(t, PhaseWaitingForOpponent, game.State().Phase)
		assert.NotEmpty(t, game.State().Error)
	})
}
