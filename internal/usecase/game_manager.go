package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/movechain/internal/engine"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/render"
	"github.com/rocketscienceinc/movechain/internal/rules"
)

// Response is an entry together with its address.
type Response[T any] struct {
	Entry   T              `json:"entry"`
	Address entity.Address `json:"address"`
}

// GameManager is the node's public surface. Every operation acts as the node's agent.
type GameManager struct {
	logger    *zap.Logger
	agent     entity.Address
	conductor *Conductor
	repo      entryRepo
	engine    *engine.Engine
	renderer  render.BoardRenderer
}

func NewGameManager(logger *zap.Logger, agent entity.Address, conductor *Conductor, repo entryRepo, engine *engine.Engine, renderer render.BoardRenderer) *GameManager {
	return &GameManager{
		logger: logger.With(zap.String("agent", agent.String())),
		agent:  agent,

		conductor: conductor,
		repo:      repo,
		engine:    engine,
		renderer:  renderer,
	}
}

func (that *GameManager) WhoAmI() entity.Address {
	return that.agent
}

// CreateGame - the creator is player 1, so the opponent makes the first move.
func (that *GameManager) CreateGame(ctx context.Context, opponent entity.Address, timestamp uint32) (entity.Address, error) {
	entry, err := entity.NewEntry(entity.EntryTypeGame, entity.Game{
		Player1:   that.agent,
		Player2:   opponent,
		CreatedAt: timestamp,
	})
	if err != nil {
		return "", err
	}

	address, err := that.conductor.Commit(ctx, that.agent, entry)
	if err != nil {
		return "", fmt.Errorf("failed to create game: %w", err)
	}

	return address, nil
}

// MakeMove - commits a move on top of the current chain tip together with the link from the tip.
func (that *GameManager) MakeMove(ctx context.Context, game entity.Address, moveType json.RawMessage, timestamp uint32) (entity.Address, error) {
	log := that.logger.With(zap.String("method", "MakeMove"), zap.String("game", game.String()))

	parsed, err := that.engine.Ruleset().ParseMove(moveType)
	if err != nil {
		return "", err
	}

	canonical, err := rules.EncodeMove(parsed)
	if err != nil {
		return "", err
	}

	if _, err = that.conductor.getGame(ctx, game); err != nil {
		return "", err
	}

	chain, err := engine.ResolveLinks(ctx, that.repo, game)
	if err != nil {
		return "", fmt.Errorf("failed to resolve moves: %w", err)
	}

	tip := engine.Tip(game, chain)

	entry, err := entity.NewEntry(entity.EntryTypeMove, entity.Move{
		Game:         game,
		Author:       that.agent,
		MoveType:     canonical,
		PreviousMove: tip,
		Timestamp:    timestamp,
	})
	if err != nil {
		return "", err
	}

	address, err := entry.Address()
	if err != nil {
		return "", err
	}

	address, err = that.conductor.Commit(ctx, that.agent, entry, entity.Link{Base: tip, Target: address, Tag: entity.LinkNextMove})
	if err != nil {
		return "", fmt.Errorf("failed to make move: %w", err)
	}

	log.Info("move made", zap.String("move", address.String()), zap.Int("number", len(chain)+1))

	return address, nil
}

func (that *GameManager) GetState(ctx context.Context, game entity.Address) (entity.GameState, error) {
	gameEntry, err := that.conductor.getGame(ctx, game)
	if err != nil {
		return entity.GameState{}, err
	}

	state, _, err := that.engine.StateFromLinks(ctx, that.repo, game, gameEntry)
	if err != nil {
		return entity.GameState{}, fmt.Errorf("failed to get state: %w", err)
	}

	return state, nil
}

// RenderState - the text board as seen by this node's agent.
func (that *GameManager) RenderState(ctx context.Context, game entity.Address) (string, error) {
	state, err := that.GetState(ctx, game)
	if err != nil {
		return "", err
	}

	return rules.RenderText(that.engine.Ruleset(), state, that.agent)
}

func (that *GameManager) RenderImage(ctx context.Context, game entity.Address) ([]byte, error) {
	state, err := that.GetState(ctx, game)
	if err != nil {
		return nil, err
	}

	image, err := that.renderer.RenderPNG(ctx, that.engine.Ruleset().BoardSize(), state)
	if err != nil {
		return nil, fmt.Errorf("failed to render image: %w", err)
	}

	return image, nil
}

// ValidMoves - one exemplar of every move type of the configured ruleset.
func (that *GameManager) ValidMoves() ([]json.RawMessage, error) {
	return rules.DescribeJSON(that.engine.Ruleset())
}

// VerifyGame - re-validates every move of a game against the part of the local log
// that existed when the move was appended. It returns the number of moves checked.
func (that *GameManager) VerifyGame(ctx context.Context, game entity.Address) (int, error) {
	gameEntry, err := that.conductor.getGame(ctx, game)
	if err != nil {
		return 0, err
	}

	records, err := that.conductor.Log(ctx)
	if err != nil {
		return 0, err
	}

	var checked int
	for i, record := range records {
		if record.Entry.Type != entity.EntryTypeMove {
			continue
		}

		var move entity.Move
		if err = record.Entry.Decode(&move); err != nil {
			return checked, err
		}

		if move.Game != game {
			continue
		}

		if err = that.engine.CheckMove(game, gameEntry, records[:i+1], record.Address, move); err != nil {
			return checked, fmt.Errorf("move %s: %w", record.Address, err)
		}

		checked++
	}

	return checked, nil
}
