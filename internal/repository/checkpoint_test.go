package repository_test

import (
	"testing"

	"github.com/boxraffle/backend/internal/repository"
	"github.com/boxraffle/backend/pkg/testutil"

	"github.com/stretchr/testify/require"
)

func Test_checkpointRepository_Advance(t *testing.T) {
	ctx := testutil.MockContext()
	repo := repository.NewCheckpointRepository()

	// A missing checkpoint reads as position zero.
	checkpoint, err := repo.Get(ctx, "consumer")
	require.NoError(t, err)
	require.Equal(t, int64(0), checkpoint.Position)

	// The first advance creates the row.
	require.NoError(t, repo.Advance(ctx, "consumer", 0, 5))

	checkpoint, err = repo.Get(ctx, "consumer")
	require.NoError(t, err)
	require.Equal(t, int64(5), checkpoint.Position)

	require.NoError(t, repo.Advance(ctx, "consumer", 5, 9))

	// A stale compare-and-swap loses.
	err = repo.Advance(ctx, "consumer", 5, 12)
	require.ErrorIs(t, err, repository.ErrStaleCheckpoint)

	checkpoint, err = repo.Get(ctx, "consumer")
	require.NoError(t, err)
	require.Equal(t, int64(9), checkpoint.Position)
}

func Test_checkpointRepository_independentNames(t *testing.T) {
	ctx := testutil.MockContext()
	repo := repository.NewCheckpointRepository()

	require.NoError(t, repo.Advance(ctx, "a", 0, 3))
	require.NoError(t, repo.Advance(ctx, "b", 0, 7))

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, int64(3), a.Position)

	b, err := repo.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, int64(7), b.Position)
}
