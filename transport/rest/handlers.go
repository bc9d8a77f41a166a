package rest

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/pkg/jsonrpc"
)

type gameParams struct {
	Game entity.Address `json:"game"`
}

type createGameParams struct {
	Opponent  entity.Address `json:"opponent"`
	Timestamp *uint32        `json:"timestamp"`
}

type makeMoveParams struct {
	Game      entity.Address  `json:"game"`
	MoveType  json.RawMessage `json:"move_type"`
	Timestamp *uint32         `json:"timestamp"`
}

type createProposalParams struct {
	Message string `json:"message"`
}

type proposalParams struct {
	ProposalAddress entity.Address `json:"proposal_address"`
	CreatedAt       *uint32        `json:"created_at"`
}

type verifyResult struct {
	Game  entity.Address `json:"game"`
	Moves int            `json:"moves"`
}

func (that *Server) registerMethods() {
	that.methods = map[string]method{
		"whoami":          that.whoAmI,
		"create_game":     that.createGame,
		"make_move":       that.makeMove,
		"get_state":       that.getState,
		"render_state":    that.renderState,
		"render_image":    that.renderImage,
		"get_valid_moves": that.getValidMoves,
		"verify_game":     that.verifyGame,
		"create_proposal": that.createProposal,
		"get_proposals":   that.getProposals,
		"accept_proposal": that.acceptProposal,
		"check_responses": that.checkResponses,
		"remove_proposal": that.removeProposal,
		"call":            that.call,
	}
}

// timestamp - seconds since the epoch unless the caller supplied one.
func (that *Server) timestamp(value *uint32) uint32 {
	if value != nil {
		return *value
	}

	return uint32(that.now().Unix())
}

func (that *Server) whoAmI(_ context.Context, params json.RawMessage) (any, error) {
	if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}

	return that.manager.WhoAmI(), nil
}

func (that *Server) createGame(ctx context.Context, params json.RawMessage) (any, error) {
	var req createGameParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}

	if err := required("opponent", req.Opponent.String()); err != nil {
		return nil, err
	}

	return that.manager.CreateGame(ctx, req.Opponent, that.timestamp(req.Timestamp))
}

// makeMove - the result is null. The new move is visible through get_state.
func (that *Server) makeMove(ctx context.Context, params json.RawMessage) (any, error) {
	var req makeMoveParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}

	if err := required("game", req.Game.String()); err != nil {
		return nil, err
	}

	if len(req.MoveType) == 0 {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid params: move_type is required")
	}

	address, err := that.manager.MakeMove(ctx, req.Game, req.MoveType, that.timestamp(req.Timestamp))
	if err != nil {
		return nil, err
	}

	that.logger.Debug("move committed", zap.String("move", address.String()))

	return nil, nil
}

func (that *Server) getState(ctx context.Context, params json.RawMessage) (any, error) {
	game, err := gameParam(params)
	if err != nil {
		return nil, err
	}

	return that.manager.GetState(ctx, game)
}

func (that *Server) renderState(ctx context.Context, params json.RawMessage) (any, error) {
	game, err := gameParam(params)
	if err != nil {
		return nil, err
	}

	return that.manager.RenderState(ctx, game)
}

// renderImage - the PNG is returned base64 encoded.
func (that *Server) renderImage(ctx context.Context, params json.RawMessage) (any, error) {
	game, err := gameParam(params)
	if err != nil {
		return nil, err
	}

	return that.manager.RenderImage(ctx, game)
}

func (that *Server) getValidMoves(_ context.Context, params json.RawMessage) (any, error) {
	if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}

	return that.manager.ValidMoves()
}

func (that *Server) verifyGame(ctx context.Context, params json.RawMessage) (any, error) {
	game, err := gameParam(params)
	if err != nil {
		return nil, err
	}

	checked, err := that.manager.VerifyGame(ctx, game)
	if err != nil {
		return nil, err
	}

	return verifyResult{Game: game, Moves: checked}, nil
}

func (that *Server) createProposal(ctx context.Context, params json.RawMessage) (any, error) {
	var req createProposalParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}

	return that.manager.CreateProposal(ctx, req.Message)
}

func (that *Server) getProposals(ctx context.Context, params json.RawMessage) (any, error) {
	if err := decodeParams(params, &struct{}{}); err != nil {
		return nil, err
	}

	return that.manager.GetProposals(ctx)
}

func (that *Server) acceptProposal(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := proposalParam(params)
	if err != nil {
		return nil, err
	}

	return that.manager.AcceptProposal(ctx, req.ProposalAddress, that.timestamp(req.CreatedAt))
}

func (that *Server) checkResponses(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := proposalParam(params)
	if err != nil {
		return nil, err
	}

	return that.manager.CheckResponses(ctx, req.ProposalAddress)
}

func (that *Server) removeProposal(ctx context.Context, params json.RawMessage) (any, error) {
	req, err := proposalParam(params)
	if err != nil {
		return nil, err
	}

	return that.manager.RemoveProposal(ctx, req.ProposalAddress)
}

func gameParam(params json.RawMessage) (entity.Address, error) {
	var req gameParams
	if err := decodeParams(params, &req); err != nil {
		return "", err
	}

	if err := required("game", req.Game.String()); err != nil {
		return "", err
	}

	return req.Game, nil
}

func proposalParam(params json.RawMessage) (proposalParams, error) {
	var req proposalParams
	if err := decodeParams(params, &req); err != nil {
		return proposalParams{}, err
	}

	if err := required("proposal_address", req.ProposalAddress.String()); err != nil {
		return proposalParams{}, err
	}

	return req, nil
}
