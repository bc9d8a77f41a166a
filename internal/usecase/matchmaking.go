package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rocketscienceinc/movechain/internal/entity"
)

func proposalsAnchor() entity.Address {
	return entity.AnchorEntry(entity.ProposalsAnchor).MustAddress()
}

// CreateProposal - advertises that this agent wants to play.
func (that *GameManager) CreateProposal(ctx context.Context, message string) (entity.Address, error) {
	anchor, err := that.conductor.Commit(ctx, that.agent, entity.AnchorEntry(entity.ProposalsAnchor))
	if err != nil {
		return "", fmt.Errorf("failed to commit anchor: %w", err)
	}

	entry, err := entity.NewEntry(entity.EntryTypeProposal, entity.Proposal{Agent: that.agent, Message: message})
	if err != nil {
		return "", err
	}

	address, err := entry.Address()
	if err != nil {
		return "", err
	}

	address, err = that.conductor.Commit(ctx, that.agent, entry, entity.Link{Base: anchor, Target: address, Tag: entity.LinkHasProposal})
	if err != nil {
		return "", fmt.Errorf("failed to create proposal: %w", err)
	}

	that.logger.Info("proposal created", zap.String("proposal", address.String()))

	return address, nil
}

// GetProposals - every proposal that has not been removed, ordered by address.
func (that *GameManager) GetProposals(ctx context.Context) ([]Response[entity.Proposal], error) {
	addresses, err := that.repo.GetLinks(ctx, proposalsAnchor(), entity.LinkHasProposal)
	if err != nil {
		return nil, fmt.Errorf("failed to get proposals: %w", err)
	}

	proposals := make([]Response[entity.Proposal], 0, len(addresses))
	for _, address := range addresses {
		proposal, err := that.conductor.getProposal(ctx, address)
		if err != nil {
			return nil, err
		}

		proposals = append(proposals, Response[entity.Proposal]{Entry: proposal, Address: address})
	}

	return proposals, nil
}

// AcceptProposal - creates a game against the proposer, who makes the first move.
func (that *GameManager) AcceptProposal(ctx context.Context, proposalAddress entity.Address, createdAt uint32) (entity.Address, error) {
	proposal, err := that.conductor.getProposal(ctx, proposalAddress)
	if err != nil {
		return "", err
	}

	entry, err := entity.NewEntry(entity.EntryTypeGame, entity.Game{
		Player1:   that.agent,
		Player2:   proposal.Agent,
		CreatedAt: createdAt,
	})
	if err != nil {
		return "", err
	}

	address, err := entry.Address()
	if err != nil {
		return "", err
	}

	address, err = that.conductor.Commit(ctx, that.agent, entry, entity.Link{Base: proposalAddress, Target: address, Tag: entity.LinkFromProposal})
	if err != nil {
		return "", fmt.Errorf("failed to accept proposal: %w", err)
	}

	that.logger.Info("proposal accepted", zap.String("proposal", proposalAddress.String()), zap.String("game", address.String()))

	return address, nil
}

// CheckResponses - games created from the proposal.
func (that *GameManager) CheckResponses(ctx context.Context, proposalAddress entity.Address) ([]Response[entity.Game], error) {
	addresses, err := that.repo.GetLinks(ctx, proposalAddress, entity.LinkFromProposal)
	if err != nil {
		return nil, fmt.Errorf("failed to get responses: %w", err)
	}

	games := make([]Response[entity.Game], 0, len(addresses))
	for _, address := range addresses {
		game, err := that.conductor.getGame(ctx, address)
		if err != nil {
			return nil, err
		}

		games = append(games, Response[entity.Game]{Entry: game, Address: address})
	}

	return games, nil
}

// RemoveProposal - returns the address of the deletion entry.
func (that *GameManager) RemoveProposal(ctx context.Context, proposalAddress entity.Address) (entity.Address, error) {
	if _, err := that.conductor.getProposal(ctx, proposalAddress); err != nil {
		return "", err
	}

	address, err := that.conductor.Remove(ctx, that.agent, proposalAddress)
	if err != nil {
		return "", fmt.Errorf("failed to remove proposal: %w", err)
	}

	return address, nil
}
