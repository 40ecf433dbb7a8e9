package service

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

type mockGameRepo struct {
	mock.Mock
}

func (that *mockGameRepo) Create(ctx context.Context, game *entity.Game) error {
	args := that.Called(ctx, game)
	return args.Error(0)
}

func (that *mockGameRepo) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	args := that.Called(ctx, id)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

// Update runs mutate against the game returned by the expectation, the same
// way the storage layer does.
func (that *mockGameRepo) Update(ctx context.Context, id string, mutate func(game *entity.Game) error) (*entity.Game, error) {
	args := that.Called(ctx, id)

	game, _ := args.Get(0).(*entity.Game)
	if err := args.Error(1); err != nil {
		return nil, err
	}

	game = game.Clone()

	err := mutate(game)
	if errors.Is(err, apperror.ErrUnchanged) {
		return game, nil
	}
	if err != nil {
		return nil, err
	}
	game.Version++

	return game, nil
}

func (that *mockGameRepo) ListWaiting(ctx context.Context) ([]*entity.Game, error) {
	args := that.Called(ctx)
	games, _ := args.Get(0).([]*entity.Game)
	return games, args.Error(1)
}

func (that *mockGameRepo) DeleteByID(ctx context.Context, id string) error {
	args := that.Called(ctx, id)
	return args.Error(0)
}

func (that *mockGameRepo) Subscribe(ctx context.Context, id string) (<-chan entity.GameSnapshot, error) {
	args := that.Called(ctx, id)
	updates, _ := args.Get(0).(<-chan entity.GameSnapshot)
	return updates, args.Error(1)
}

func (that *mockGameRepo) WatchWaiting(ctx context.Context) (<-chan []*entity.Game, error) {
	args := that.Called(ctx)
	lobby, _ := args.Get(0).(<-chan []*entity.Game)
	return lobby, args.Error(1)
}

type mockVocabularyRepo struct {
	mock.Mock
}

func (that *mockVocabularyRepo) Save(ctx context.Context, word *entity.VocabularyWord) error {
	args := that.Called(ctx, word)
	return args.Error(0)
}

func (that *mockVocabularyRepo) GetRandom(ctx context.Context) (*entity.VocabularyWord, error) {
	args := that.Called(ctx)
	word, _ := args.Get(0).(*entity.VocabularyWord)
	return word, args.Error(1)
}

func (that *mockVocabularyRepo) Count(ctx context.Context) (int, error) {
	args := that.Called(ctx)
	return args.Int(0), args.Error(1)
}
