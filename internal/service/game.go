package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/internal/pkg"
)

const createGameAttempts = 3

type GameService interface {
	CreateGame(ctx context.Context, host *entity.Player) (*entity.Game, error)
	JoinGame(ctx context.Context, gameID string, player *entity.Player) (*entity.Game, error)
	ListWaitingGames(ctx context.Context) ([]*entity.Game, error)
	GetGameByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteGame(ctx context.Context, id string) error
	WatchWaitingGames(ctx context.Context) (<-chan []*entity.Game, error)

	Subscribe(ctx context.Context, gameID string) (<-chan entity.GameSnapshot, error)
	SubmitUpdate(ctx context.Context, gameID string, update entity.GameUpdate) error
}

type gameRepo interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	Update(ctx context.Context, id string, mutate func(game *entity.Game) error) (*entity.Game, error)
	ListWaiting(ctx context.Context) ([]*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (<-chan entity.GameSnapshot, error)
	WatchWaiting(ctx context.Context) (<-chan []*entity.Game, error)
}

type gameService struct {
	gameRepo gameRepo
}

func NewGameService(gameRepo gameRepo) GameService {
	return &gameService{
		gameRepo: gameRepo,
	}
}

func (that *gameService) CreateGame(ctx context.Context, host *entity.Player) (*entity.Game, error) {
	var err error

	for attempt := 0; attempt < createGameAttempts; attempt++ {
		game := entity.NewGame(pkg.GenerateGameID(), host)

		err = that.gameRepo.Create(ctx, game)
		if err == nil {
			return game, nil
		}

		if !errors.Is(err, apperror.ErrGameAlreadyExists) {
			break
		}
	}

	return nil, fmt.Errorf("failed to create game in storage: %w", err)
}

// JoinGame adds the player as the second participant. Joining a game the
// player is already in returns it without a new version.
func (that *gameService) JoinGame(ctx context.Context, gameID string, player *entity.Player) (*entity.Game, error) {
	game, err := that.gameRepo.Update(ctx, gameID, func(game *entity.Game) error {
		if game.HasPlayer(player.ID) {
			return apperror.ErrUnchanged
		}

		return game.Join(player)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to join game: %w", err)
	}

	return game, nil
}

func (that *gameService) ListWaitingGames(ctx context.Context) ([]*entity.Game, error) {
	games, err := that.gameRepo.ListWaiting(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve waiting games from storage: %w", err)
	}

	return games, nil
}

func (that *gameService) GetGameByID(ctx context.Context, id string) (*entity.Game, error) {
	game, err := that.gameRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve game from storage: %w", err)
	}

	return game, nil
}

// DeleteGame removes a game still waiting for an opponent.
func (that *gameService) DeleteGame(ctx context.Context, id string) error {
	if err := that.gameRepo.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}

func (that *gameService) WatchWaitingGames(ctx context.Context) (<-chan []*entity.Game, error) {
	lobby, err := that.gameRepo.WatchWaiting(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to watch waiting games: %w", err)
	}

	return lobby, nil
}

func (that *gameService) Subscribe(ctx context.Context, gameID string) (<-chan entity.GameSnapshot, error) {
	updates, err := that.gameRepo.Subscribe(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to game: %w", err)
	}

	return updates, nil
}

// SubmitUpdate persists a move or a forfeited turn. The write is rejected with
// apperror.ErrStaleUpdate if another writer got there first.
func (that *gameService) SubmitUpdate(ctx context.Context, gameID string, update entity.GameUpdate) error {
	_, err := that.gameRepo.Update(ctx, gameID, func(game *entity.Game) error {
		return game.Apply(update)
	})
	if err != nil {
		return fmt.Errorf("failed to update game: %w", err)
	}

	return nil
}
