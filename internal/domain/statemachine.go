package domain

import (
	"context"
	"errors"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/errorx"
	"github.com/boxraffle/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// raffleTransitions is the complete lifecycle: Open -> Full -> Drawing ->
// Completed, with cancellation possible before drawing starts. Drawing ->
// Full is the oracle-timeout rollback path.
var raffleTransitions = map[entity.RaffleStatus][]entity.RaffleStatus{
	entity.RaffleOpen:    {entity.RaffleFull, entity.RaffleCancelled},
	entity.RaffleFull:    {entity.RaffleDrawing, entity.RaffleCancelled},
	entity.RaffleDrawing: {entity.RaffleCompleted, entity.RaffleFull},
}

// RaffleStateMachine owns every status mutation of a raffle. All transitions
// commit through guarded updates, so two concurrent attempts of the same
// transition cannot both win.
type RaffleStateMachine struct {
	raffleRepo repository.RaffleRepository
}

func NewRaffleStateMachine(raffleRepo repository.RaffleRepository) *RaffleStateMachine {
	return &RaffleStateMachine{raffleRepo: raffleRepo}
}

func (m *RaffleStateMachine) CanTransition(from, to entity.RaffleStatus) bool {
	for _, allowed := range raffleTransitions[from] {
		if allowed == to {
			return true
		}
	}

	return false
}

// Transition moves the raffle to another status and updates the in-memory
// copy on success.
func (m *RaffleStateMachine) Transition(
	ctx context.Context, raffle *entity.Raffle, to entity.RaffleStatus,
) error {
	if raffle.Status.IsTerminal() {
		return errorx.New(errorx.RaffleTerminal, "Raffle is already %s", raffle.Status)
	}

	if !m.CanTransition(raffle.Status, to) {
		return errorx.New(errorx.BadRequest,
			"Cannot transition raffle from %s to %s", raffle.Status, to)
	}

	if err := m.raffleRepo.UpdateStatus(ctx, raffle.ID, raffle.Status, to); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.Unavailable,
				"Raffle left the %s status concurrently", raffle.Status)
		}

		xcontext.Logger(ctx).Errorf("Cannot update raffle status: %v", err)
		return errorx.Unknown
	}

	raffle.Status = to
	return nil
}

// CompleteWithWinners commits the winner list and the Drawing -> Completed
// transition as one guarded update, so at most one resolution ever lands.
func (m *RaffleStateMachine) CompleteWithWinners(
	ctx context.Context, raffle *entity.Raffle, ownerIDs []string,
) error {
	if raffle.Status.IsTerminal() {
		return errorx.New(errorx.RaffleTerminal, "Raffle is already %s", raffle.Status)
	}

	if !m.CanTransition(raffle.Status, entity.RaffleCompleted) {
		return errorx.New(errorx.BadRequest,
			"Cannot complete a raffle in the %s status", raffle.Status)
	}

	if err := m.raffleRepo.SetWinners(ctx, raffle.ID, ownerIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.Unavailable, "Raffle was resolved concurrently")
		}

		xcontext.Logger(ctx).Errorf("Cannot set raffle winners: %v", err)
		return errorx.Unknown
	}

	raffle.Status = entity.RaffleCompleted
	raffle.WinnerOwnerIDs = ownerIDs
	return nil
}
