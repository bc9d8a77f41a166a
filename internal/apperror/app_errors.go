package apperror

import "errors"

// Rejection reasons for moves. The text is shown to players as is.
var (
	ErrGameFinished        = errors.New("cannot make move: game has already ended")
	ErrNotYourTurn         = errors.New("it is not this players turn")
	ErrFirstMove           = errors.New("player 2 must make the first move")
	ErrPlayerNotInGame     = errors.New("player is not part of this game")
	ErrSelfPlay            = errors.New("player cannot play themselves")
	ErrOutOfBounds         = errors.New("position is not in bounds")
	ErrNoPiece             = errors.New("there is no piece at the from position")
	ErrOpponentPiece       = errors.New("cannot move an opponent's piece")
	ErrCellOccupied        = errors.New("a piece already exists at that position")
	ErrNotDiagonal         = errors.New("pieces may only move diagonally by one or two squares")
	ErrBackwardMove        = errors.New("pieces may only move forward")
	ErrJumpOverEmpty       = errors.New("can only jump over another piece")
	ErrJumpOwnPiece        = errors.New("cannot jump own piece")
	ErrUnknownMoveType     = errors.New("unknown move type")
	ErrMalformedMove       = errors.New("move type is malformed")
	ErrNotChainTip         = errors.New("move does not extend the current chain tip")
	ErrMoveAuthorMismatch  = errors.New("cannot author a move for another agent")
	ErrGameAuthorMismatch  = errors.New("cannot create a game on behalf of another agent")
	ErrProposalAuthor      = errors.New("cannot author a proposal from another agent")
	ErrCannotModifyGame    = errors.New("cannot modify or delete a game")
	ErrCannotModifyMove    = errors.New("cannot modify or delete a move")
	ErrCannotDeleteEntry   = errors.New("entry of this type cannot be deleted")
	ErrProposalRemoveOwner = errors.New("cannot remove a proposal from another agent")
	ErrAgentProvenance     = errors.New("agent entry must be committed by that agent")
)

// Chain structure errors.
var (
	ErrChainForked       = errors.New("move chain is forked: more than one next move")
	ErrChainCycle        = errors.New("move chain contains a cycle")
	ErrChainMissingEntry = errors.New("move chain references a missing entry")
	ErrChainMalformed    = errors.New("move chain is malformed")
)

// Store and entry errors.
var (
	ErrNotFound         = errors.New("entry not found")
	ErrGameNotFound     = errors.New("game not found")
	ErrProposalNotFound = errors.New("proposal not found")
	ErrProposalRemoved  = errors.New("proposal has been removed")
	ErrAddressMismatch  = errors.New("entry address does not match its content")
	ErrUnknownEntryType = errors.New("unknown entry type")
	ErrInvalidLink      = errors.New("link is not valid")
)

// reasons is ordered from most to least specific.
var reasons = []error{
	ErrGameFinished, ErrNotYourTurn, ErrFirstMove, ErrPlayerNotInGame, ErrSelfPlay,
	ErrOutOfBounds, ErrNoPiece, ErrOpponentPiece, ErrCellOccupied, ErrNotDiagonal,
	ErrBackwardMove, ErrJumpOverEmpty, ErrJumpOwnPiece, ErrUnknownMoveType, ErrMalformedMove,
	ErrNotChainTip, ErrMoveAuthorMismatch, ErrGameAuthorMismatch, ErrProposalAuthor,
	ErrCannotModifyGame, ErrCannotModifyMove, ErrCannotDeleteEntry, ErrProposalRemoveOwner, ErrAgentProvenance,
	ErrChainForked, ErrChainCycle, ErrChainMissingEntry, ErrChainMalformed,
	ErrGameNotFound, ErrProposalNotFound, ErrProposalRemoved, ErrAddressMismatch,
	ErrUnknownEntryType, ErrInvalidLink, ErrNotFound,
}

// Reason - returns the user facing reason carried by err.
func Reason(err error) string {
	if err == nil {
		return ""
	}

	for _, reason := range reasons {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}

	return err.Error()
}

// IsRejection - reports whether err is a known rejection rather than an infrastructure failure.
func IsRejection(err error) bool {
	for _, reason := range reasons {
		if errors.Is(err, reason) {
			return true
		}
	}

	return false
}
