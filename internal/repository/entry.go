package repository

import (
	"context"
	"sort"

	"github.com/rocketscienceinc/movechain/internal/entity"
)

// EntryRepository is a content addressed entry store with typed links and the
// node's append-only local log.
type EntryRepository interface {
	// GetEntry - returns apperror.ErrNotFound for unknown addresses. Removed entries are still returned.
	GetEntry(ctx context.Context, address entity.Address) (entity.Entry, error)
	HasEntry(ctx context.Context, address entity.Address) (bool, error)
	// CommitEntry - stores the entry under its content address. Committing twice is a no-op.
	CommitEntry(ctx context.Context, entry entity.Entry) (entity.Address, error)
	LinkEntries(ctx context.Context, link entity.Link) error
	// GetLinks - returns link targets sorted by address, skipping removed entries.
	GetLinks(ctx context.Context, base entity.Address, tag entity.LinkTag) ([]entity.Address, error)
	RemoveEntry(ctx context.Context, address entity.Address) error
	IsRemoved(ctx context.Context, address entity.Address) (bool, error)
	// AppendLog - stores the record's entry, its links and, for a deletion, the removal, then
	// assigns the next sequence number and appends the record. Either all of it is written or none.
	AppendLog(ctx context.Context, record entity.Record) (int64, error)
	// Log - returns every record in sequence order.
	Log(ctx context.Context) ([]entity.Record, error)
}

// compact - returns the entry with compacted content and its address.
func compact(entry entity.Entry) (entity.Entry, entity.Address, error) {
	stored, err := entry.Compacted()
	if err != nil {
		return entity.Entry{}, "", err
	}

	address, err := stored.Address()
	if err != nil {
		return entity.Entry{}, "", err
	}

	return stored, address, nil
}

// removalOf - the address a deletion record tombstones.
func removalOf(record entity.Record) (entity.Address, bool, error) {
	if record.Entry.Type != entity.EntryTypeDeletion {
		return "", false, nil
	}

	var deletion entity.Deletion
	if err := record.Entry.Decode(&deletion); err != nil {
		return "", false, err
	}

	return deletion.DeletedAddress, true, nil
}

func sortAddresses(addresses []entity.Address) []entity.Address {
	sort.Slice(addresses, func(i, j int) bool { return addresses[i] < addresses[j] })

	return addresses
}
