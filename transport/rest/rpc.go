package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/pkg/jsonrpc"
)

type method func(ctx context.Context, params json.RawMessage) (any, error)

func (that *Server) handleRPC(ctx *gin.Context) {
	body, err := ctx.GetRawData()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, jsonrpc.Failure(nil, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "failed to read request")))
		return
	}

	var req jsonrpc.Request
	if err = json.Unmarshal(body, &req); err != nil {
		ctx.JSON(http.StatusOK, jsonrpc.Failure(nil, jsonrpc.NewError(jsonrpc.CodeParseError, "parse error: %s", err)))
		return
	}

	ctx.JSON(http.StatusOK, that.dispatch(ctx.Request.Context(), req))
}

func (that *Server) dispatch(ctx context.Context, req jsonrpc.Request) jsonrpc.Response {
	log := that.logger.With(zap.String("method", req.Method))

	if req.JSONRPC != jsonrpc.Version || req.Method == "" {
		return jsonrpc.Failure(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, "invalid request"))
	}

	call, ok := that.methods[req.Method]
	if !ok {
		return jsonrpc.Failure(req.ID, jsonrpc.NewError(jsonrpc.CodeMethodNotFound, "method not found: %s", req.Method))
	}

	result, err := call(ctx, req.Params)
	if err != nil {
		return jsonrpc.Failure(req.ID, that.toRPCError(log, err))
	}

	resp, err := jsonrpc.Success(req.ID, result)
	if err != nil {
		log.Error("failed to encode result", zap.Error(err))
		return jsonrpc.Failure(req.ID, jsonrpc.NewError(jsonrpc.CodeInternalError, "failed to encode result"))
	}

	return resp
}

func (that *Server) toRPCError(log *zap.Logger, err error) *jsonrpc.Error {
	var rpcErr *jsonrpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	if apperror.IsRejection(err) {
		log.Info("call rejected", zap.Error(err))
	} else {
		log.Error("call failed", zap.Error(err))
	}

	return &jsonrpc.Error{Code: jsonrpc.CodeRejected, Message: apperror.Reason(err)}
}

// decodeParams - absent or null params decode as an empty object. Unknown fields are rejected.
func decodeParams(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid params: %s", err)
	}

	return nil
}

func required(name string, value string) error {
	if value == "" {
		return jsonrpc.NewError(jsonrpc.CodeInvalidParams, "invalid params: %s is required", name)
	}

	return nil
}
