package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

// logKey - a list of JSON records. A record's sequence number is its position in the list.
const logKey = "log"

type dbEntries struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) EntryRepository {
	return &dbEntries{
		client: client,
	}
}

func entryKey(address entity.Address) string {
	return "entry:" + address.String()
}

func removedKey(address entity.Address) string {
	return "removed:" + address.String()
}

// links are a sorted set with a zero score so members come back in lexicographic order
func linksKey(base entity.Address, tag entity.LinkTag) string {
	return "links:" + base.String() + ":" + string(tag)
}

func (that *dbEntries) GetEntry(ctx context.Context, address entity.Address) (entity.Entry, error) {
	response, err := that.client.Get(ctx, entryKey(address)).Result()

	if errors.Is(err, redis.Nil) {
		return entity.Entry{}, fmt.Errorf("%w: %s", apperror.ErrNotFound, address)
	}

	if err != nil {
		return entity.Entry{}, fmt.Errorf("failed to get entry %s: %w", address, err)
	}

	var entry entity.Entry
	if err = json.Unmarshal([]byte(response), &entry); err != nil {
		return entity.Entry{}, fmt.Errorf("failed to unmarshal entry: %w", err)
	}

	return entry, nil
}

func (that *dbEntries) HasEntry(ctx context.Context, address entity.Address) (bool, error) {
	count, err := that.client.Exists(ctx, entryKey(address)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check entry %s: %w", address, err)
	}

	return count > 0, nil
}

func (that *dbEntries) CommitEntry(ctx context.Context, entry entity.Entry) (entity.Address, error) {
	stored, address, err := compact(entry)
	if err != nil {
		return "", err
	}

	entryJSON, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("could not marshal entry: %w", err)
	}

	if err = that.client.SetNX(ctx, entryKey(address), entryJSON, 0).Err(); err != nil {
		return "", fmt.Errorf("failed to set entry: %w", err)
	}

	return address, nil
}

func (that *dbEntries) LinkEntries(ctx context.Context, link entity.Link) error {
	member := redis.Z{Score: 0, Member: link.Target.String()}

	if err := that.client.ZAdd(ctx, linksKey(link.Base, link.Tag), member).Err(); err != nil {
		return fmt.Errorf("failed to add link: %w", err)
	}

	return nil
}

func (that *dbEntries) GetLinks(ctx context.Context, base entity.Address, tag entity.LinkTag) ([]entity.Address, error) {
	members, err := that.client.ZRange(ctx, linksKey(base, tag), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get links: %w", err)
	}

	targets := make([]entity.Address, 0, len(members))
	for _, member := range members {
		removed, err := that.IsRemoved(ctx, entity.Address(member))
		if err != nil {
			return nil, err
		}

		if !removed {
			targets = append(targets, entity.Address(member))
		}
	}

	return sortAddresses(targets), nil
}

func (that *dbEntries) RemoveEntry(ctx context.Context, address entity.Address) error {
	if err := that.client.Set(ctx, removedKey(address), "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to remove entry: %w", err)
	}

	return nil
}

func (that *dbEntries) IsRemoved(ctx context.Context, address entity.Address) (bool, error) {
	count, err := that.client.Exists(ctx, removedKey(address)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check removal of %s: %w", address, err)
	}

	return count > 0, nil
}

func (that *dbEntries) AppendLog(ctx context.Context, record entity.Record) (int64, error) {
	stored, address, err := compact(record.Entry)
	if err != nil {
		return 0, err
	}

	removal, isDeletion, err := removalOf(record)
	if err != nil {
		return 0, err
	}

	entryJSON, err := json.Marshal(stored)
	if err != nil {
		return 0, fmt.Errorf("could not marshal entry: %w", err)
	}

	record.Entry = stored
	record.Seq = 0

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return 0, fmt.Errorf("could not marshal record: %w", err)
	}

	var push *redis.IntCmd

	_, err = that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, entryKey(address), entryJSON, 0)

		for _, link := range record.Links {
			pipe.ZAdd(ctx, linksKey(link.Base, link.Tag), redis.Z{Score: 0, Member: link.Target.String()})
		}

		if isDeletion {
			pipe.Set(ctx, removedKey(removal), "1", 0)
		}

		push = pipe.RPush(ctx, logKey, recordJSON)

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to append record: %w", err)
	}

	return push.Val(), nil
}

func (that *dbEntries) Log(ctx context.Context) ([]entity.Record, error) {
	response, err := that.client.LRange(ctx, logKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	records := make([]entity.Record, 0, len(response))
	for i, item := range response {
		var record entity.Record
		if err = json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}

		record.Seq = int64(i + 1)
		records = append(records, record)
	}

	return records, nil
}
