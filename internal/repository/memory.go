package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

type linkKey struct {
	base entity.Address
	tag  entity.LinkTag
}

type memoryEntries struct {
	mu      sync.RWMutex
	entries map[entity.Address]entity.Entry
	links   map[linkKey]map[entity.Address]struct{}
	removed map[entity.Address]struct{}
	log     []entity.Record
}

func NewMemoryRepository() EntryRepository {
	return &memoryEntries{
		entries: make(map[entity.Address]entity.Entry),
		links:   make(map[linkKey]map[entity.Address]struct{}),
		removed: make(map[entity.Address]struct{}),
	}
}

func (that *memoryEntries) GetEntry(_ context.Context, address entity.Address) (entity.Entry, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entry, ok := that.entries[address]
	if !ok {
		return entity.Entry{}, fmt.Errorf("%w: %s", apperror.ErrNotFound, address)
	}

	return entry, nil
}

func (that *memoryEntries) HasEntry(_ context.Context, address entity.Address) (bool, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	_, ok := that.entries[address]

	return ok, nil
}

func (that *memoryEntries) CommitEntry(_ context.Context, entry entity.Entry) (entity.Address, error) {
	stored, address, err := compact(entry)
	if err != nil {
		return "", err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.entries[address]; !ok {
		that.entries[address] = stored
	}

	return address, nil
}

func (that *memoryEntries) LinkEntries(_ context.Context, link entity.Link) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.link(link)

	return nil
}

// link - the caller holds the lock.
func (that *memoryEntries) link(link entity.Link) {
	key := linkKey{base: link.Base, tag: link.Tag}
	if that.links[key] == nil {
		that.links[key] = make(map[entity.Address]struct{})
	}
	that.links[key][link.Target] = struct{}{}
}

func (that *memoryEntries) GetLinks(_ context.Context, base entity.Address, tag entity.LinkTag) ([]entity.Address, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	targets := make([]entity.Address, 0, len(that.links[linkKey{base: base, tag: tag}]))
	for target := range that.links[linkKey{base: base, tag: tag}] {
		if _, removed := that.removed[target]; removed {
			continue
		}
		targets = append(targets, target)
	}

	return sortAddresses(targets), nil
}

func (that *memoryEntries) RemoveEntry(_ context.Context, address entity.Address) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.removed[address] = struct{}{}

	return nil
}

func (that *memoryEntries) IsRemoved(_ context.Context, address entity.Address) (bool, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	_, ok := that.removed[address]

	return ok, nil
}

func (that *memoryEntries) AppendLog(_ context.Context, record entity.Record) (int64, error) {
	stored, address, err := compact(record.Entry)
	if err != nil {
		return 0, err
	}

	removal, isDeletion, err := removalOf(record)
	if err != nil {
		return 0, err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.entries[address]; !ok {
		that.entries[address] = stored
	}

	for _, link := range record.Links {
		that.link(link)
	}

	if isDeletion {
		that.removed[removal] = struct{}{}
	}

	record.Entry = stored
	record.Seq = int64(len(that.log) + 1)
	that.log = append(that.log, record)

	return record.Seq, nil
}

func (that *memoryEntries) Log(_ context.Context) ([]entity.Record, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	records := make([]entity.Record, len(that.log))
	copy(records, that.log)

	return records, nil
}
