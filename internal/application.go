package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rocketscienceinc/movechain/internal/config"
	"github.com/rocketscienceinc/movechain/internal/engine"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/render"
	"github.com/rocketscienceinc/movechain/internal/repository"
	"github.com/rocketscienceinc/movechain/internal/repository/storage"
	"github.com/rocketscienceinc/movechain/internal/rules"
	"github.com/rocketscienceinc/movechain/internal/rules/checkers"
	"github.com/rocketscienceinc/movechain/internal/rules/tictactoe"
	"github.com/rocketscienceinc/movechain/internal/usecase"
	"github.com/rocketscienceinc/movechain/transport/rest"
	"github.com/rocketscienceinc/movechain/transport/websocket"
)

var (
	ErrAddrNotFound   = errors.New("redis address string is empty")
	ErrUnknownRuleset = errors.New("unknown ruleset")
	ErrUnknownStorage = errors.New("unknown storage driver")
	ErrEmptyDSN       = errors.New("sql dsn is empty")
)

// RunApp - runs the application.
func RunApp(logger *zap.Logger, conf *config.Config) error {
	log := logger.With(zap.String("component", "app"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		cancel()
	}()

	ruleset, err := NewRuleset(conf.Ruleset)
	if err != nil {
		return err
	}

	repo, closeStorage, err := OpenRepository(ctx, conf)
	if err != nil {
		return err
	}

	defer func() {
		if err = closeStorage(); err != nil {
			log.Error("could not close storage", zap.Error(err))
		}
	}()

	gameEngine := engine.New(ruleset)
	conductor := usecase.NewConductor(logger, repo, gameEngine)

	key := conf.Agent.Key
	if key == "" {
		key = uuid.NewString()
		log.Warn("agent key is empty, generated a new one", zap.String("key", key))
	}

	agent, err := conductor.Bootstrap(ctx, entity.Agent{Name: conf.Agent.Name, Key: key})
	if err != nil {
		return fmt.Errorf("could not bootstrap agent: %w", err)
	}

	log.Info("agent ready", zap.String("agent", agent.String()), zap.String("ruleset", ruleset.Name()), zap.String("storage", conf.Storage.Driver))

	gossip := websocket.New(logger, conductor)
	conductor.SetPublisher(gossip)

	gameManager := usecase.NewGameManager(logger, agent, conductor, repo, gameEngine, render.NewSVGBoardRenderer())

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("port", conf.HTTPPort))
		if httpErr := rest.New(logger, gameManager).Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", zap.Error(httpErr))
			httpErrCh <- httpErr
		}
	}()

	// run gossip server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting gossip server", zap.String("port", conf.GossipPort))
		if wsErr := gossip.Start(ctx, conf.GossipPort); wsErr != nil {
			log.Error("gossip server error", zap.Error(wsErr))
			wsErrCh <- wsErr
		}
	}()

	for _, url := range conf.Peers {
		go func(url string) {
			if dialErr := gossip.Connect(ctx, url); dialErr != nil {
				log.Warn("could not connect to peer", zap.String("peer", url), zap.Error(dialErr))
			}
		}(url)
	}

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("gossip server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

func NewRuleset(name string) (rules.Ruleset, error) {
	switch name {
	case checkers.Name:
		return checkers.New(), nil
	case tictactoe.Name:
		return tictactoe.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuleset, name)
	}
}

// OpenRepository - opens the configured store. The returned function closes it.
func OpenRepository(ctx context.Context, conf *config.Config) (repository.EntryRepository, func() error, error) {
	switch conf.Storage.Driver {
	case "memory":
		return repository.NewMemoryRepository(), func() error { return nil }, nil
	case "redis":
		redisAddrString := conf.Redis.GetRedisAddr()
		if redisAddrString == "" {
			return nil, nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, redisAddrString)
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return repository.NewRedisRepository(redisStorage.Connection), redisStorage.Close, nil
	case string(storage.DialectSQLite), string(storage.DialectPostgres):
		if conf.Storage.DSN == "" {
			return nil, nil, ErrEmptyDSN
		}

		sqlStorage, err := storage.NewSQLStorage(storage.Dialect(conf.Storage.Driver), conf.Storage.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sql storage: %w", err)
		}

		if err = sqlStorage.Init(ctx); err != nil {
			_ = sqlStorage.Close()
			return nil, nil, fmt.Errorf("could not init sql storage: %w", err)
		}

		return repository.NewSQLRepository(sqlStorage.Connection, sqlStorage.Dialect), sqlStorage.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStorage, conf.Storage.Driver)
	}
}
