package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/movechain/internal/entity"
)

func (that *Server) handleEntryPublish(ctx context.Context, p *peer, msg *Message) error {
	var record entity.Record
	if err := json.Unmarshal(msg.Payload, &record); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	added, err := that.conductor.Ingest(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", record.Address, err)
	}

	if added {
		that.logger.Debug("record received", zap.String("peer", p.addr), zap.String("address", record.Address.String()))
	}

	return nil
}

func (that *Server) handleLogSync(ctx context.Context, p *peer, _ *Message) error {
	records, err := that.conductor.Log(ctx)
	if err != nil {
		return err
	}

	if err = that.send(ctx, p, actionLogRecords, recordsPayload{Records: records}); err != nil {
		return fmt.Errorf("failed to send log: %w", err)
	}

	return nil
}

// handleLogRecords - replays a peer's log in sequence order. A rejected record does not stop the replay.
func (that *Server) handleLogRecords(ctx context.Context, p *peer, msg *Message) error {
	log := that.logger.With(zap.String("method", "handleLogRecords"), zap.String("peer", p.addr))

	var payload recordsPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	var added, rejected int
	for _, record := range payload.Records {
		ok, err := that.conductor.Ingest(ctx, record)
		if err != nil {
			rejected++
			log.Info("record rejected", zap.String("address", record.Address.String()), zap.Error(err))
			continue
		}

		if ok {
			added++
		}
	}

	log.Info("log replayed", zap.Int("records", len(payload.Records)), zap.Int("added", added), zap.Int("rejected", rejected))

	return nil
}
