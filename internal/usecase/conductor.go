package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/engine"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

type entryRepo interface {
	GetEntry(ctx context.Context, address entity.Address) (entity.Entry, error)
	HasEntry(ctx context.Context, address entity.Address) (bool, error)
	GetLinks(ctx context.Context, base entity.Address, tag entity.LinkTag) ([]entity.Address, error)
	IsRemoved(ctx context.Context, address entity.Address) (bool, error)
	AppendLog(ctx context.Context, record entity.Record) (int64, error)
	Log(ctx context.Context) ([]entity.Record, error)
}

// Publisher sends records committed on this node to its peers.
type Publisher interface {
	Publish(ctx context.Context, record entity.Record) error
}

// Conductor is the only writer of a node's store. Every entry, local or received
// from a peer, is validated against the node's own log before it is persisted.
type Conductor struct {
	logger *zap.Logger
	repo   entryRepo
	engine *engine.Engine

	mu        sync.Mutex
	publisher Publisher
}

func NewConductor(logger *zap.Logger, repo entryRepo, engine *engine.Engine) *Conductor {
	return &Conductor{
		logger: logger,
		repo:   repo,
		engine: engine,
	}
}

func (that *Conductor) SetPublisher(publisher Publisher) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.publisher = publisher
}

// Bootstrap - commits the agent entry. Its address is the agent's identity.
func (that *Conductor) Bootstrap(ctx context.Context, agent entity.Agent) (entity.Address, error) {
	entry, err := entity.NewEntry(entity.EntryTypeAgent, agent)
	if err != nil {
		return "", err
	}

	address, err := entry.Address()
	if err != nil {
		return "", err
	}

	if _, err = that.Commit(ctx, address, entry); err != nil {
		return "", fmt.Errorf("failed to commit agent: %w", err)
	}

	return address, nil
}

// Commit - validates and stores a local entry with the links that point at it, then publishes it.
// Committing an entry that is already stored returns its address and does nothing else.
func (that *Conductor) Commit(ctx context.Context, provenance entity.Address, entry entity.Entry, links ...entity.Link) (entity.Address, error) {
	log := that.logger.With(zap.String("method", "Commit"), zap.String("entry_type", string(entry.Type)))

	entry, err := entry.Compacted()
	if err != nil {
		return "", err
	}

	address, err := entry.Address()
	if err != nil {
		return "", err
	}

	record := entity.Record{Address: address, Entry: entry, Provenance: provenance, Links: links}

	that.mu.Lock()
	stored, err := that.apply(ctx, record)
	publisher := that.publisher
	that.mu.Unlock()

	if err != nil {
		log.Debug("entry rejected", zap.String("address", address.String()), zap.Error(err))
		return "", err
	}

	if stored == nil {
		return address, nil
	}

	log.Info("entry committed", zap.String("address", address.String()), zap.Int64("seq", stored.Seq))

	if publisher != nil {
		if err = publisher.Publish(ctx, *stored); err != nil {
			log.Warn("failed to publish entry", zap.String("address", address.String()), zap.Error(err))
		}
	}

	return address, nil
}

// Ingest - validates and stores a record received from a peer. It reports whether the record was new.
func (that *Conductor) Ingest(ctx context.Context, record entity.Record) (bool, error) {
	log := that.logger.With(zap.String("method", "Ingest"), zap.String("address", record.Address.String()))

	entry, err := record.Entry.Compacted()
	if err != nil {
		return false, err
	}

	address, err := entry.Address()
	if err != nil {
		return false, err
	}

	record.Entry = entry

	if address != record.Address {
		return false, fmt.Errorf("%w: claimed %s, computed %s", apperror.ErrAddressMismatch, record.Address, address)
	}

	that.mu.Lock()
	stored, err := that.apply(ctx, record)
	that.mu.Unlock()

	if err != nil {
		log.Info("record rejected", zap.String("provenance", record.Provenance.String()), zap.Error(err))
		return false, err
	}

	if stored == nil {
		return false, nil
	}

	log.Debug("record ingested", zap.Int64("seq", stored.Seq))

	return true, nil
}

// Remove - commits a deletion entry for target.
func (that *Conductor) Remove(ctx context.Context, provenance, target entity.Address) (entity.Address, error) {
	entry, err := entity.NewEntry(entity.EntryTypeDeletion, entity.Deletion{DeletedAddress: target})
	if err != nil {
		return "", err
	}

	return that.Commit(ctx, provenance, entry)
}

// Log - the node's local log in sequence order.
func (that *Conductor) Log(ctx context.Context) ([]entity.Record, error) {
	records, err := that.repo.Log(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	return records, nil
}

// apply - runs validation and persistence. The caller holds the lock.
// A nil record means the entry was already stored.
func (that *Conductor) apply(ctx context.Context, record entity.Record) (*entity.Record, error) {
	exists, err := that.repo.HasEntry(ctx, record.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to check entry: %w", err)
	}

	if exists {
		return nil, nil
	}

	records, err := that.repo.Log(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	if err = that.validateEntry(ctx, record, records); err != nil {
		return nil, err
	}

	if err = that.validateLinks(ctx, record); err != nil {
		return nil, err
	}

	if err = that.persist(ctx, &record); err != nil {
		return nil, err
	}

	return &record, nil
}

// persist - the entry, its links, a removal and the log record are written in one step, so a
// failed write leaves nothing behind and the same record can be applied again.
func (that *Conductor) persist(ctx context.Context, record *entity.Record) error {
	seq, err := that.repo.AppendLog(ctx, *record)
	if err != nil {
		return fmt.Errorf("failed to append log: %w", err)
	}

	record.Seq = seq

	return nil
}
