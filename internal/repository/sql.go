package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
	"github.com/rocketscienceinc/movechain/internal/repository/storage"
)

type sqlEntries struct {
	conn    *sql.DB
	dialect storage.Dialect
}

func NewSQLRepository(conn *sql.DB, dialect storage.Dialect) EntryRepository {
	return &sqlEntries{
		conn:    conn,
		dialect: dialect,
	}
}

// rebind - queries are written with ? placeholders, postgres wants $1, $2...
func (that *sqlEntries) rebind(query string) string {
	if that.dialect != storage.DialectPostgres {
		return query
	}

	var (
		out strings.Builder
		n   int
	)

	for _, r := range query {
		if r == '?' {
			n++
			out.WriteString("$" + strconv.Itoa(n))
			continue
		}
		out.WriteRune(r)
	}

	return out.String()
}

func (that *sqlEntries) GetEntry(ctx context.Context, address entity.Address) (entity.Entry, error) {
	query := that.rebind(`SELECT entry_type, content FROM entries WHERE address = ?`)

	var entryType, content string

	err := that.conn.QueryRowContext(ctx, query, address.String()).Scan(&entryType, &content)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Entry{}, fmt.Errorf("%w: %s", apperror.ErrNotFound, address)
	}
	if err != nil {
		return entity.Entry{}, fmt.Errorf("can't find entry: %w", err)
	}

	return entity.Entry{Type: entity.EntryType(entryType), Content: json.RawMessage(content)}, nil
}

func (that *sqlEntries) HasEntry(ctx context.Context, address entity.Address) (bool, error) {
	return that.exists(ctx, `SELECT 1 FROM entries WHERE address = ?`, address)
}

func (that *sqlEntries) CommitEntry(ctx context.Context, entry entity.Entry) (entity.Address, error) {
	stored, address, err := compact(entry)
	if err != nil {
		return "", err
	}

	query := that.rebind(`INSERT INTO entries (address, entry_type, content) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`)

	if _, err = that.conn.ExecContext(ctx, query, address.String(), string(stored.Type), string(stored.Content)); err != nil {
		return "", fmt.Errorf("can't save entry: %w", err)
	}

	return address, nil
}

func (that *sqlEntries) LinkEntries(ctx context.Context, link entity.Link) error {
	query := that.rebind(`INSERT INTO links (base, tag, target) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`)

	if _, err := that.conn.ExecContext(ctx, query, link.Base.String(), string(link.Tag), link.Target.String()); err != nil {
		return fmt.Errorf("can't save link: %w", err)
	}

	return nil
}

func (that *sqlEntries) GetLinks(ctx context.Context, base entity.Address, tag entity.LinkTag) ([]entity.Address, error) {
	query := that.rebind(`SELECT l.target FROM links l
		LEFT JOIN removals r ON r.address = l.target
		WHERE l.base = ? AND l.tag = ? AND r.address IS NULL`)

	rows, err := that.conn.QueryContext(ctx, query, base.String(), string(tag))
	if err != nil {
		return nil, fmt.Errorf("can't get links: %w", err)
	}
	defer rows.Close()

	targets := make([]entity.Address, 0)
	for rows.Next() {
		var target string
		if err = rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("can't scan link: %w", err)
		}
		targets = append(targets, entity.Address(target))
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't get links: %w", err)
	}

	return sortAddresses(targets), nil
}

func (that *sqlEntries) RemoveEntry(ctx context.Context, address entity.Address) error {
	query := that.rebind(`INSERT INTO removals (address) VALUES (?) ON CONFLICT DO NOTHING`)

	if _, err := that.conn.ExecContext(ctx, query, address.String()); err != nil {
		return fmt.Errorf("can't remove entry: %w", err)
	}

	return nil
}

func (that *sqlEntries) IsRemoved(ctx context.Context, address entity.Address) (bool, error) {
	return that.exists(ctx, `SELECT 1 FROM removals WHERE address = ?`, address)
}

func (that *sqlEntries) AppendLog(ctx context.Context, record entity.Record) (int64, error) {
	stored, address, err := compact(record.Entry)
	if err != nil {
		return 0, err
	}

	removal, isDeletion, err := removalOf(record)
	if err != nil {
		return 0, err
	}

	links, err := json.Marshal(record.Links)
	if err != nil {
		return 0, fmt.Errorf("could not marshal links: %w", err)
	}

	tx, err := that.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("can't begin transaction: %w", err)
	}
	// a no-op once the transaction is committed
	defer func() { _ = tx.Rollback() }()

	query := that.rebind(`INSERT INTO entries (address, entry_type, content) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`)
	if _, err = tx.ExecContext(ctx, query, address.String(), string(stored.Type), string(stored.Content)); err != nil {
		return 0, fmt.Errorf("can't save entry: %w", err)
	}

	query = that.rebind(`INSERT INTO links (base, tag, target) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`)
	for _, link := range record.Links {
		if _, err = tx.ExecContext(ctx, query, link.Base.String(), string(link.Tag), link.Target.String()); err != nil {
			return 0, fmt.Errorf("can't save link: %w", err)
		}
	}

	if isDeletion {
		query = that.rebind(`INSERT INTO removals (address) VALUES (?) ON CONFLICT DO NOTHING`)
		if _, err = tx.ExecContext(ctx, query, removal.String()); err != nil {
			return 0, fmt.Errorf("can't remove entry: %w", err)
		}
	}

	query = that.rebind(`INSERT INTO log (seq, address, provenance, links)
		SELECT COALESCE(MAX(seq), 0) + 1, ?, ?, ? FROM log
		RETURNING seq`)

	var seq int64
	if err = tx.QueryRowContext(ctx, query, record.Address.String(), record.Provenance.String(), string(links)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("can't append record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("can't commit record: %w", err)
	}

	return seq, nil
}

func (that *sqlEntries) Log(ctx context.Context) ([]entity.Record, error) {
	query := `SELECT l.seq, l.address, l.provenance, l.links, e.entry_type, e.content
		FROM log l JOIN entries e ON e.address = l.address
		ORDER BY l.seq`

	rows, err := that.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("can't read log: %w", err)
	}
	defer rows.Close()

	records := make([]entity.Record, 0)
	for rows.Next() {
		var (
			record                                         entity.Record
			address, provenance, links, entryType, content string
		)

		if err = rows.Scan(&record.Seq, &address, &provenance, &links, &entryType, &content); err != nil {
			return nil, fmt.Errorf("can't scan record: %w", err)
		}

		if err = json.Unmarshal([]byte(links), &record.Links); err != nil {
			return nil, fmt.Errorf("failed to unmarshal links: %w", err)
		}

		record.Address = entity.Address(address)
		record.Provenance = entity.Address(provenance)
		record.Entry = entity.Entry{Type: entity.EntryType(entryType), Content: json.RawMessage(content)}
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("can't read log: %w", err)
	}

	return records, nil
}

func (that *sqlEntries) exists(ctx context.Context, query string, address entity.Address) (bool, error) {
	var one int

	err := that.conn.QueryRowContext(ctx, that.rebind(query), address.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("can't query %s: %w", address, err)
	}

	return true, nil
}
