package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/connectfour-backend/internal/apperror"
	"github.com/rocketscienceinc/connectfour-backend/internal/entity"
	"github.com/rocketscienceinc/connectfour-backend/internal/pkg"
)

type gameService interface {
	CreateGame(ctx context.Context, host *entity.Player) (*entity.Game, error)
	JoinGame(ctx context.Context, gameID string, player *entity.Player) (*entity.Game, error)
	ListWaitingGames(ctx context.Context) ([]*entity.Game, error)
	GetGameByID(ctx context.Context, id string) (*entity.Game, error)
	DeleteGame(ctx context.Context, id string) error
}

type GameHandler interface {
	CreateGame(ctx echo.Context) error
	JoinGame(ctx echo.Context) error
	ListWaitingGames(ctx echo.Context) error
	GetGame(ctx echo.Context) error
	DeleteGame(ctx echo.Context) error
}

// PlayerRequest identifies the caller. An empty PlayerID gets a new id.
type PlayerRequest struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

type GameResponse struct {
	PlayerID string       `json:"player_id,omitempty"`
	Game     *entity.Game `json:"game"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type gameHandler struct {
	logger *slog.Logger
	games  gameService
}

func NewGameHandler(logger *slog.Logger, games gameService) GameHandler {
	return &gameHandler{
		logger: logger,
		games:  games,
	}
}

func (that *gameHandler) CreateGame(ctx echo.Context) error {
	log := that.logger.With("method", "CreateGame")

	player, err := bindPlayer(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	game, err := that.games.CreateGame(ctx.Request().Context(), player)
	if err != nil {
		log.Error("failed to create game", "player_id", player.ID, "error", err)
		return errorJSON(ctx, err)
	}

	log.Info("game created", "game_id", game.ID, "player_id", player.ID)

	return ctx.JSON(http.StatusCreated, GameResponse{PlayerID: player.ID, Game: game})
}

func (that *gameHandler) JoinGame(ctx echo.Context) error {
	log := that.logger.With("method", "JoinGame")

	player, err := bindPlayer(ctx)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	gameID := ctx.Param("id")

	game, err := that.games.JoinGame(ctx.Request().Context(), gameID, player)
	if err != nil {
		log.Warn("failed to join game", "game_id", gameID, "player_id", player.ID, "error", err)
		return errorJSON(ctx, err)
	}

	return ctx.JSON(http.StatusOK, GameResponse{PlayerID: player.ID, Game: game})
}

func (that *gameHandler) ListWaitingGames(ctx echo.Context) error {
	games, err := that.games.ListWaitingGames(ctx.Request().Context())
	if err != nil {
		that.logger.Error("failed to list games", "error", err)
		return errorJSON(ctx, err)
	}

	return ctx.JSON(http.StatusOK, games)
}

func (that *gameHandler) GetGame(ctx echo.Context) error {
	game, err := that.games.GetGameByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errorJSON(ctx, err)
	}

	return ctx.JSON(http.StatusOK, GameResponse{Game: game})
}

// DeleteGame removes an abandoned game from the lobby. Games that have
// started are kept.
func (that *gameHandler) DeleteGame(ctx echo.Context) error {
	gameID := ctx.Param("id")

	if err := that.games.DeleteGame(ctx.Request().Context(), gameID); err != nil {
		that.logger.Warn("failed to delete game", "game_id", gameID, "error", err)
		return errorJSON(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func bindPlayer(ctx echo.Context) (*entity.Player, error) {
	var request PlayerRequest
	if err := ctx.Bind(&request); err != nil {
		return nil, err
	}

	if request.PlayerID == "" {
		request.PlayerID = pkg.GenerateNewSessionID()
	}

	return &entity.Player{ID: request.PlayerID, Name: request.PlayerName}, nil
}

func errorJSON(ctx echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, apperror.ErrGameNotFound):
		status, message = http.StatusNotFound, apperror.ErrGameNotFound.Error()
	case errors.Is(err, apperror.ErrGameFull):
		status, message = http.StatusConflict, apperror.ErrGameFull.Error()
	case errors.Is(err, apperror.ErrGameFinished):
		status, message = http.StatusConflict, apperror.ErrGameFinished.Error()
	case errors.Is(err, apperror.ErrGameNotWaiting):
		status, message = http.StatusConflict, apperror.ErrGameNotWaiting.Error()
	}

	return ctx.JSON(status, ErrorResponse{Error: message})
}
