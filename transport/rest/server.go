package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/usecase"
)

type gameManager interface {
	WhoAmI() entity.Address

	CreateGame(ctx context.Context, opponent entity.Address, timestamp uint32) (entity.Address, error)
	MakeMove(ctx context.Context, game entity.Address, moveType json.RawMessage, timestamp uint32) (entity.Address, error)
	GetState(ctx context.Context, game entity.Address) (entity.GameState, error)
	RenderState(ctx context.Context, game entity.Address) (string, error)
	RenderImage(ctx context.Context, game entity.Address) ([]byte, error)
	ValidMoves() ([]json.RawMessage, error)
	VerifyGame(ctx context.Context, game entity.Address) (int, error)

	CreateProposal(ctx context.Context, message string) (entity.Address, error)
	GetProposals(ctx context.Context) ([]usecase.Response[entity.Proposal], error)
	AcceptProposal(ctx context.Context, proposal entity.Address, createdAt uint32) (entity.Address, error)
	CheckResponses(ctx context.Context, proposal entity.Address) ([]usecase.Response[entity.Game], error)
	RemoveProposal(ctx context.Context, proposal entity.Address) (entity.Address, error)
}

type Server struct {
	logger  *zap.Logger
	manager gameManager
	router  *gin.Engine

	methods map[string]method
	now     func() time.Time
}

func New(logger *zap.Logger, manager gameManager) *Server {
	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		logger:  logger.With(zap.String("component", "rpc")),
		manager: manager,
		router:  gin.New(),
		now:     time.Now,
	}

	server.registerMethods()

	server.router.Use(gin.Recovery())
	server.router.GET("/ping", pingHandler)
	server.router.POST("/rpc", server.handleRPC)

	return server
}

func (that *Server) Handler() http.Handler {
	return that.router
}

// Start - serves HTTP until ctx is cancelled.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down server", zap.Error(err))
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
