package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
)

const (
	waitingGamesKey    = "games:waiting"
	lobbyChannel       = "games:lobby"
	gameDeletedMessage = "deleted"
	maxTxRetries       = 10
)

type GameRepository interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	Update(ctx context.Context, id string, mutate func(game *entity.Game) error) (*entity.Game, error)
	ListWaiting(ctx context.Context) ([]*entity.Game, error)
	DeleteByID(ctx context.Context, id string) error
	Subscribe(ctx context.Context, id string) (<-chan entity.GameSnapshot, error)
	WatchWaiting(ctx context.Context) (<-chan []*entity.Game, error)
}

type dbGame struct {
	logger *slog.Logger
	client *redis.Client
}

func NewGameRepository(logger *slog.Logger, client *redis.Client) GameRepository {
	return &dbGame{
		logger: logger.With("component", "game_repository"),
		client: client,
	}
}

func gameKey(id string) string {
	return "game:" + id
}

func gameChannel(id string) string {
	return "game:" + id + ":updates"
}

// Create stores a new game. It fails with apperror.ErrGameAlreadyExists when
// the id is taken.
func (that *dbGame) Create(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	created, err := that.client.SetNX(ctx, gameKey(game.ID), gameJSON, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	if !created {
		return fmt.Errorf("%w: game id %s", apperror.ErrGameAlreadyExists, game.ID)
	}

	if game.IsWaiting() {
		if err = that.client.SAdd(ctx, waitingGamesKey, game.ID).Err(); err != nil {
			return fmt.Errorf("failed to list game as waiting: %w", err)
		}

		if err = that.client.Publish(ctx, lobbyChannel, game.ID).Err(); err != nil {
			that.logger.Warn("failed to announce new game", "game_id", game.ID, "error", err)
		}
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w by id", err)
	}

	return decodeGame(response)
}

// Update runs mutate against the stored game inside a WATCH transaction, bumps
// the version, stores the result and publishes it to the game's channel. A
// concurrent writer makes the transaction retry with fresh data. When mutate
// returns apperror.ErrUnchanged nothing is written and the stored game is
// returned as is.
func (that *dbGame) Update(ctx context.Context, id string, mutate func(game *entity.Game) error) (*entity.Game, error) {
	key := gameKey(id)

	var updated *entity.Game

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrGameNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}

		game, err := decodeGame(response)
		if err != nil {
			return err
		}

		wasWaiting := game.IsWaiting()

		err = mutate(game)
		if errors.Is(err, apperror.ErrUnchanged) {
			updated = game
			return nil
		}
		if err != nil {
			return err
		}

		game.Version++

		gameJSON, err := json.Marshal(game)
		if err != nil {
			return fmt.Errorf("could not marshal game: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, gameJSON, 0)

			if game.IsWaiting() {
				pipe.SAdd(ctx, waitingGamesKey, game.ID)
			} else {
				pipe.SRem(ctx, waitingGamesKey, game.ID)
			}

			pipe.Publish(ctx, gameChannel(id), gameJSON)

			if wasWaiting || game.IsWaiting() {
				pipe.Publish(ctx, lobbyChannel, game.ID)
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to store game: %w", err)
		}

		updated = game

		return nil
	}

	if err := that.watch(ctx, key, txf); err != nil {
		return nil, err
	}

	return updated, nil
}

// watch runs txf under WATCH on key, retrying while other writers win the race.
func (that *dbGame) watch(ctx context.Context, key string, txf func(tx *redis.Tx) error) error {
	for range maxTxRetries {
		err := that.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return err
	}

	return fmt.Errorf("%w: too much contention on %s", apperror.ErrStaleUpdate, key)
}

func (that *dbGame) ListWaiting(ctx context.Context) ([]*entity.Game, error) {
	log := that.logger.With("method", "ListWaiting")

	ids, err := that.client.SMembers(ctx, waitingGamesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list waiting games: %w", err)
	}

	if len(ids) == 0 {
		return []*entity.Game{}, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, gameKey(id))
	}

	values, err := that.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get waiting games: %w", err)
	}

	games := make([]*entity.Game, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			log.Warn("waiting game is gone", "game_id", ids[i])
			continue
		}

		game, err := decodeGame([]byte(raw))
		if err != nil {
			log.Error("skipping unreadable game", "game_id", ids[i], "error", err)
			continue
		}

		if game.IsWaiting() {
			games = append(games, game)
		}
	}

	return games, nil
}

// DeleteByID removes a game nobody has joined yet. Games in progress or
// finished are kept and apperror.ErrGameNotWaiting is returned. Subscribers of
// the deleted game are told and their streams are closed.
func (that *dbGame) DeleteByID(ctx context.Context, id string) error {
	key := gameKey(id)

	txf := func(tx *redis.Tx) error {
		response, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return apperror.ErrGameNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get game: %w", err)
		}

		game, err := decodeGame(response)
		if err != nil {
			return err
		}

		if !game.IsWaiting() {
			return fmt.Errorf("%w: game id %s is %s", apperror.ErrGameNotWaiting, id, game.Status)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, waitingGamesKey, id)
			pipe.Publish(ctx, gameChannel(id), gameDeletedMessage)
			pipe.Publish(ctx, lobbyChannel, id)

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to delete game by ID: %w", err)
		}

		return nil
	}

	return that.watch(ctx, key, txf)
}

// Subscribe emits the current game followed by every stored update, in
// version order. A snapshot that fails to decode is emitted as an error and
// the stream goes on. Deleting the game emits apperror.ErrGameNotFound and
// closes the stream, as does ctx being done.
func (that *dbGame) Subscribe(ctx context.Context, id string) (<-chan entity.GameSnapshot, error) {
	log := that.logger.With("method", "Subscribe", "game_id", id)

	pubsub := that.client.Subscribe(ctx, gameChannel(id))

	// wait for the subscription so that no update between GET and SUBSCRIBE is lost
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to game: %w", err)
	}

	current, err := that.GetByID(ctx, id)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	updates := make(chan entity.GameSnapshot)

	go func() {
		defer close(updates)
		defer func() {
			if err := pubsub.Close(); err != nil {
				log.Error("failed to close subscription", "error", err)
			}
		}()

		send := func(snapshot entity.GameSnapshot) bool {
			select {
			case updates <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(entity.GameSnapshot{Game: current}) {
			return
		}

		lastVersion := current.Version
		messages := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case message, ok := <-messages:
				if !ok {
					log.Warn("subscription channel closed")
					return
				}

				if message.Payload == gameDeletedMessage {
					log.Info("game deleted, closing subscription")
					send(entity.GameSnapshot{Err: fmt.Errorf("%w: game id %s was deleted", apperror.ErrGameNotFound, id)})
					return
				}

				game, err := decodeGame([]byte(message.Payload))
				if err != nil {
					log.Error("malformed game snapshot", "error", err)

					if !send(entity.GameSnapshot{Err: err}) {
						return
					}
					continue
				}

				if game.Version <= lastVersion {
					continue
				}
				lastVersion = game.Version

				if !send(entity.GameSnapshot{Game: game}) {
					return
				}
			}
		}
	}()

	return updates, nil
}

// WatchWaiting emits the waiting games now and again after every change to
// the lobby. The channel is closed when ctx is done.
func (that *dbGame) WatchWaiting(ctx context.Context) (<-chan []*entity.Game, error) {
	log := that.logger.With("method", "WatchWaiting")

	pubsub := that.client.Subscribe(ctx, lobbyChannel)

	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to lobby: %w", err)
	}

	current, err := that.ListWaiting(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	lobby := make(chan []*entity.Game)

	go func() {
		defer close(lobby)
		defer func() {
			if err := pubsub.Close(); err != nil {
				log.Error("failed to close lobby subscription", "error", err)
			}
		}()

		send := func(games []*entity.Game) bool {
			select {
			case lobby <- games:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if !send(current) {
			return
		}

		messages := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-messages:
				if !ok {
					log.Warn("lobby channel closed")
					return
				}
			}

			games, err := that.ListWaiting(ctx)
			if err != nil {
				log.Error("failed to refresh lobby", "error", err)
				continue
			}

			if !send(games) {
				return
			}
		}
	}()

	return lobby, nil
}

func decodeGame(data []byte) (*entity.Game, error) {
	var game entity.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}
