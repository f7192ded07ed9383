package domain

import (
	"context"
	"testing"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/errorx"
	"github.com/boxraffle/backend/pkg/testutil"
	"github.com/boxraffle/backend/pkg/xcontext"
	"github.com/google/uuid"

	"github.com/stretchr/testify/require"
)

func Test_RaffleStateMachine_CanTransition(t *testing.T) {
	m := NewRaffleStateMachine(repository.NewRaffleRepository())

	require.True(t, m.CanTransition(entity.RaffleOpen, entity.RaffleFull))
	require.True(t, m.CanTransition(entity.RaffleOpen, entity.RaffleCancelled))
	require.True(t, m.CanTransition(entity.RaffleFull, entity.RaffleDrawing))
	require.True(t, m.CanTransition(entity.RaffleFull, entity.RaffleCancelled))
	require.True(t, m.CanTransition(entity.RaffleDrawing, entity.RaffleCompleted))
	require.True(t, m.CanTransition(entity.RaffleDrawing, entity.RaffleFull))

	require.False(t, m.CanTransition(entity.RaffleOpen, entity.RaffleDrawing))
	require.False(t, m.CanTransition(entity.RaffleOpen, entity.RaffleCompleted))
	require.False(t, m.CanTransition(entity.RaffleDrawing, entity.RaffleCancelled))
	require.False(t, m.CanTransition(entity.RaffleCompleted, entity.RaffleOpen))
	require.False(t, m.CanTransition(entity.RaffleCancelled, entity.RaffleOpen))
}

func insertRaffleWithStatus(t *testing.T, ctx context.Context, status entity.RaffleStatus) *entity.Raffle {
	raffle := &entity.Raffle{
		Base:         entity.Base{ID: uuid.NewString()},
		ItemID:       "item1",
		CreatedBy:    "user1",
		TotalBoxes:   2,
		BoxPrice:     10,
		TotalWinners: 1,
		GridRows:     1,
		GridCols:     2,
		Status:       status,
	}

	require.NoError(t, repository.NewRaffleRepository().Create(ctx, raffle))
	return raffle
}

func Test_RaffleStateMachine_Transition(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	m := NewRaffleStateMachine(repository.NewRaffleRepository())

	raffle := insertRaffleWithStatus(t, ctx, entity.RaffleOpen)
	require.NoError(t, m.Transition(ctx, raffle, entity.RaffleFull))
	require.Equal(t, entity.RaffleFull, raffle.Status)

	// Illegal transition.
	err := m.Transition(ctx, raffle, entity.RaffleCompleted)
	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, uint64(errorx.BadRequest), errx.Code)

	// Terminal states refuse everything.
	require.NoError(t, m.Transition(ctx, raffle, entity.RaffleCancelled))
	err = m.Transition(ctx, raffle, entity.RaffleFull)
	require.ErrorAs(t, err, &errx)
	require.Equal(t, uint64(errorx.RaffleTerminal), errx.Code)
}

func Test_RaffleStateMachine_Transition_lostRace(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	m := NewRaffleStateMachine(repository.NewRaffleRepository())

	raffle := insertRaffleWithStatus(t, ctx, entity.RaffleOpen)

	// Another worker moved the raffle on while we held a stale copy.
	tx := xcontext.DB(ctx).Model(&entity.Raffle{}).
		Where("id=?", raffle.ID).
		Update("status", entity.RaffleCancelled)
	require.NoError(t, tx.Error)

	err := m.Transition(ctx, raffle, entity.RaffleFull)
	var errx errorx.Error
	require.ErrorAs(t, err, &errx)
	require.Equal(t, uint64(errorx.Unavailable), errx.Code)
}
