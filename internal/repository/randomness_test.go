package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func insertRandomnessRequest(t *testing.T, ctx context.Context, raffleID string) *entity.RandomnessRequest {
	repo := repository.NewRandomnessRepository()
	request := &entity.RandomnessRequest{
		Base:        entity.Base{ID: uuid.NewString()},
		RaffleID:    raffleID,
		Attempt:     1,
		RequestedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, request))
	return request
}

func Test_randomnessRepository_Fulfill_once(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	repo := repository.NewRandomnessRepository()
	request := insertRandomnessRequest(t, ctx, insertOpenRaffle(t, ctx, 4))

	require.NoError(t, repo.Fulfill(ctx, request.ID, "ab12"))

	// A duplicate callback loses on the guard.
	err := repo.Fulfill(ctx, request.ID, "cd34")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	result, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.True(t, result.Fulfilled)
	require.Equal(t, "ab12", result.RandomValue)

	// Neither can a fulfilled request be abandoned anymore.
	err = repo.MarkAbandoned(ctx, request.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func Test_randomnessRepository_Fulfill_refusesAbandoned(t *testing.T) {
	ctx := testutil.MockContext()
	testutil.CreateFixtureDb(ctx)
	repo := repository.NewRandomnessRepository()
	request := insertRandomnessRequest(t, ctx, insertOpenRaffle(t, ctx, 4))

	require.NoError(t, repo.MarkAbandoned(ctx, request.ID))

	// A fulfillment racing the timeout sweep must not resurrect a request
	// the sweep already gave up on.
	err := repo.Fulfill(ctx, request.ID, "ab12")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	result, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.False(t, result.Fulfilled)
	require.True(t, result.Abandoned)
}
