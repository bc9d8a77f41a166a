package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/movechain/internal/apperror"
	"github.com/rocketscienceinc/movechain/internal/entity"
)

// validateEntry - per entry type rules. Moves are checked by the engine against the local log.
func (that *Conductor) validateEntry(ctx context.Context, record entity.Record, records []entity.Record) error {
	entry := record.Entry

	switch entry.Type {
	case entity.EntryTypeAgent:
		var agent entity.Agent
		if err := entry.Decode(&agent); err != nil {
			return err
		}

		if record.Provenance != record.Address {
			return apperror.ErrAgentProvenance
		}

		return nil
	case entity.EntryTypeGame:
		var game entity.Game
		if err := entry.Decode(&game); err != nil {
			return err
		}

		if game.Player1 != record.Provenance {
			return apperror.ErrGameAuthorMismatch
		}

		if game.Player1 == game.Player2 {
			return apperror.ErrSelfPlay
		}

		return nil
	case entity.EntryTypeMove:
		var move entity.Move
		if err := entry.Decode(&move); err != nil {
			return err
		}

		if move.Author != record.Provenance {
			return apperror.ErrMoveAuthorMismatch
		}

		game, err := that.getGame(ctx, move.Game)
		if err != nil {
			return err
		}

		return that.engine.CheckMove(move.Game, game, records, record.Address, move)
	case entity.EntryTypeProposal:
		var proposal entity.Proposal
		if err := entry.Decode(&proposal); err != nil {
			return err
		}

		if proposal.Agent != record.Provenance {
			return apperror.ErrProposalAuthor
		}

		return nil
	case entity.EntryTypeAnchor:
		var name string

		return entry.Decode(&name)
	case entity.EntryTypeDeletion:
		var deletion entity.Deletion
		if err := entry.Decode(&deletion); err != nil {
			return err
		}

		return that.validateDeletion(ctx, record.Provenance, deletion)
	default:
		return fmt.Errorf("%w: %q", apperror.ErrUnknownEntryType, entry.Type)
	}
}

// validateDeletion - games and moves are permanent, proposals may be removed by their author.
func (that *Conductor) validateDeletion(ctx context.Context, provenance entity.Address, deletion entity.Deletion) error {
	target, err := that.repo.GetEntry(ctx, deletion.DeletedAddress)
	if err != nil {
		return fmt.Errorf("failed to get deleted entry: %w", err)
	}

	switch target.Type {
	case entity.EntryTypeGame:
		return apperror.ErrCannotModifyGame
	case entity.EntryTypeMove:
		return apperror.ErrCannotModifyMove
	case entity.EntryTypeProposal:
		var proposal entity.Proposal
		if err = target.Decode(&proposal); err != nil {
			return err
		}

		if proposal.Agent != provenance {
			return apperror.ErrProposalRemoveOwner
		}

		return nil
	default:
		return apperror.ErrCannotDeleteEntry
	}
}

// validateLinks - every link in a record points at the record's entry.
// A move must carry exactly the next_move link from its predecessor.
func (that *Conductor) validateLinks(ctx context.Context, record entity.Record) error {
	var nextMoves int

	for _, link := range record.Links {
		if link.Target != record.Address {
			return fmt.Errorf("%w: %s link targets %s, not %s", apperror.ErrInvalidLink, link.Tag, link.Target, record.Address)
		}

		switch link.Tag {
		case entity.LinkNextMove:
			nextMoves++
			if err := that.validateNextMoveLink(record, link); err != nil {
				return err
			}
		case entity.LinkHasProposal:
			if record.Entry.Type != entity.EntryTypeProposal || link.Base != entity.AnchorEntry(entity.ProposalsAnchor).MustAddress() {
				return fmt.Errorf("%w: has_proposal must link the proposals anchor to a proposal", apperror.ErrInvalidLink)
			}
		case entity.LinkFromProposal:
			if err := that.validateFromProposalLink(ctx, record, link); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown tag %q", apperror.ErrInvalidLink, link.Tag)
		}
	}

	if record.Entry.Type == entity.EntryTypeMove && nextMoves != 1 {
		return fmt.Errorf("%w: a move needs exactly one next_move link, got %d", apperror.ErrInvalidLink, nextMoves)
	}

	return nil
}

func (that *Conductor) validateNextMoveLink(record entity.Record, link entity.Link) error {
	if record.Entry.Type != entity.EntryTypeMove {
		return fmt.Errorf("%w: next_move must target a move", apperror.ErrInvalidLink)
	}

	var move entity.Move
	if err := record.Entry.Decode(&move); err != nil {
		return err
	}

	if link.Base != move.PreviousMove {
		return fmt.Errorf("%w: next_move base %s is not the previous move %s", apperror.ErrInvalidLink, link.Base, move.PreviousMove)
	}

	return nil
}

// validateFromProposalLink - a game created from a proposal must be played against the proposer.
func (that *Conductor) validateFromProposalLink(ctx context.Context, record entity.Record, link entity.Link) error {
	if record.Entry.Type != entity.EntryTypeGame {
		return fmt.Errorf("%w: from_proposal must target a game", apperror.ErrInvalidLink)
	}

	proposal, err := that.getProposal(ctx, link.Base)
	if err != nil {
		return err
	}

	var game entity.Game
	if err = record.Entry.Decode(&game); err != nil {
		return err
	}

	if game.Player2 != proposal.Agent {
		return fmt.Errorf("%w: game is not played against the proposer", apperror.ErrInvalidLink)
	}

	return nil
}

func (that *Conductor) getGame(ctx context.Context, address entity.Address) (entity.Game, error) {
	entry, err := that.repo.GetEntry(ctx, address)
	if errors.Is(err, apperror.ErrNotFound) {
		return entity.Game{}, fmt.Errorf("%w: %s", apperror.ErrGameNotFound, address)
	}
	if err != nil {
		return entity.Game{}, fmt.Errorf("failed to get game: %w", err)
	}

	if entry.Type != entity.EntryTypeGame {
		return entity.Game{}, fmt.Errorf("%w: %s is a %s entry", apperror.ErrGameNotFound, address, entry.Type)
	}

	var game entity.Game
	if err = entry.Decode(&game); err != nil {
		return entity.Game{}, err
	}

	return game, nil
}

// getProposal - loads a proposal that has not been removed.
func (that *Conductor) getProposal(ctx context.Context, address entity.Address) (entity.Proposal, error) {
	entry, err := that.repo.GetEntry(ctx, address)
	if errors.Is(err, apperror.ErrNotFound) {
		return entity.Proposal{}, fmt.Errorf("%w: %s", apperror.ErrProposalNotFound, address)
	}
	if err != nil {
		return entity.Proposal{}, fmt.Errorf("failed to get proposal: %w", err)
	}

	if entry.Type != entity.EntryTypeProposal {
		return entity.Proposal{}, fmt.Errorf("%w: %s is a %s entry", apperror.ErrProposalNotFound, address, entry.Type)
	}

	removed, err := that.repo.IsRemoved(ctx, address)
	if err != nil {
		return entity.Proposal{}, fmt.Errorf("failed to check proposal: %w", err)
	}

	if removed {
		return entity.Proposal{}, fmt.Errorf("%w: %s", apperror.ErrProposalRemoved, address)
	}

	var proposal entity.Proposal
	if err = entry.Decode(&proposal); err != nil {
		return entity.Proposal{}, err
	}

	return proposal, nil
}
