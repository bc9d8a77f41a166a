package entity

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Address is the content address of an entry: hex encoded sha256 of its canonical form.
type Address string

func (that Address) String() string {
	return string(that)
}

type EntryType string

const (
	EntryTypeAgent    EntryType = "agent"
	EntryTypeGame     EntryType = "game"
	EntryTypeMove     EntryType = "move"
	EntryTypeProposal EntryType = "game_proposal"
	EntryTypeAnchor   EntryType = "anchor"
	EntryTypeDeletion EntryType = "deletion"
)

// Entry is the unit stored in the content addressed store.
type Entry struct {
	Type    EntryType       `json:"entry_type"`
	Content json.RawMessage `json:"content"`
}

// NewEntry - builds an entry of the given type from any JSON encodable content.
func NewEntry(entryType EntryType, content any) (Entry, error) {
	raw, err := json.Marshal(content)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to marshal %s entry: %w", entryType, err)
	}

	return Entry{Type: entryType, Content: raw}, nil
}

// Compacted - returns the entry with insignificant whitespace removed from its content.
func (that Entry) Compacted() (Entry, error) {
	var content bytes.Buffer
	if err := json.Compact(&content, that.Content); err != nil {
		return Entry{}, fmt.Errorf("failed to compact %s entry: %w", that.Type, err)
	}

	return Entry{Type: that.Type, Content: content.Bytes()}, nil
}

// Canonical - returns the byte form the address is computed from.
func (that Entry) Canonical() ([]byte, error) {
	compacted, err := that.Compacted()
	if err != nil {
		return nil, err
	}

	canonical, err := json.Marshal(compacted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s entry: %w", that.Type, err)
	}

	return canonical, nil
}

// Address - computes the content address of the entry.
func (that Entry) Address() (Address, error) {
	canonical, err := that.Canonical()
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)

	return Address(hex.EncodeToString(sum[:])), nil
}

// MustAddress is Address for entries built in code from known-good values.
func (that Entry) MustAddress() Address {
	address, err := that.Address()
	if err != nil {
		panic(err)
	}

	return address
}

// Decode - unmarshals the content into v.
func (that Entry) Decode(v any) error {
	if err := json.Unmarshal(that.Content, v); err != nil {
		return fmt.Errorf("failed to decode %s entry: %w", that.Type, err)
	}

	return nil
}

type LinkTag string

const (
	LinkNextMove     LinkTag = "next_move"
	LinkHasProposal  LinkTag = "has_proposal"
	LinkFromProposal LinkTag = "from_proposal"
)

// Link is a named, directed relation between two entries.
type Link struct {
	Base   Address `json:"base"`
	Target Address `json:"target"`
	Tag    LinkTag `json:"tag"`
}

// Record is one item of a node's append-only local log.
// Links are the links committed in the same operation as the entry.
type Record struct {
	Seq        int64   `json:"seq"`
	Address    Address `json:"address"`
	Entry      Entry   `json:"entry"`
	Provenance Address `json:"provenance"`
	Links      []Link  `json:"links,omitempty"`
}
