package rest

import (
	"context"
	"encoding/json"

	"github.com/rocketscienceinc/movechain/pkg/jsonrpc"
)

// Older clients address every function through a single "call" method with the
// function and its arguments nested in params.
var (
	legacyFunctions = map[string]string{
		"valid_moves": "get_valid_moves",
		"new_game":    "create_game",
	}

	legacyParams = map[string]string{
		"game_address":  "game",
		"proposal_addr": "proposal_address",
	}

	legacyWrappers = []string{"game_move", "new_move"}
)

type callParams struct {
	InstanceID string          `json:"instance_id"`
	Zome       string          `json:"zome"`
	Function   string          `json:"function"`
	Params     json.RawMessage `json:"params"`
}

func (that *Server) call(ctx context.Context, params json.RawMessage) (any, error) {
	var req callParams
	if err := decodeParams(params, &req); err != nil {
		return nil, err
	}

	if err := required("function", req.Function); err != nil {
		return nil, err
	}

	name := req.Function
	if alias, ok := legacyFunctions[name]; ok {
		name = alias
	}

	target, ok := that.methods[name]
	if !ok || name == "call" {
		return nil, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "function not found: %s", req.Function)
	}

	translated, err := translateParams(req.Params)
	if err != nil {
		return nil, err
	}

	return target(ctx, translated)
}

// translateParams - renames old argument names and flattens a wrapped move.
func translateParams(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return raw, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid params: %s", err)
	}

	for _, wrapper := range legacyWrappers {
		inner, ok := fields[wrapper]
		if !ok {
			continue
		}

		var innerFields map[string]json.RawMessage
		if err := json.Unmarshal(inner, &innerFields); err != nil {
			return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid params: %s", err)
		}

		delete(fields, wrapper)
		for key, value := range innerFields {
			fields[key] = value
		}
	}

	for from, to := range legacyParams {
		if value, ok := fields[from]; ok {
			fields[to] = value
			delete(fields, from)
		}
	}

	translated, err := json.Marshal(fields)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid params: %s", err)
	}

	return translated, nil
}
