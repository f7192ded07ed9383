package repository

import (
	"context"
	"errors"

	"github.com/boxraffle/backend/internal/entity"
	"github.com/boxraffle/backend/pkg/xcontext"
	"gorm.io/gorm"
)

// ErrStaleCheckpoint is returned when a compare-and-swap loses: the stored
// position no longer matches what the caller read.
var ErrStaleCheckpoint = errors.New("checkpoint position is stale")

type CheckpointRepository interface {
	Get(ctx context.Context, name string) (*entity.Checkpoint, error)

	// Advance moves the checkpoint from the position the caller last read to
	// a new one. A mismatch returns ErrStaleCheckpoint so two workers cannot
	// silently overwrite each other.
	Advance(ctx context.Context, name string, from, to int64) error
}

type checkpointRepository struct{}

func NewCheckpointRepository() *checkpointRepository {
	return &checkpointRepository{}
}

func (r *checkpointRepository) Get(ctx context.Context, name string) (*entity.Checkpoint, error) {
	var result entity.Checkpoint
	err := xcontext.DB(ctx).Take(&result, "name=?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A missing checkpoint starts at zero.
		return &entity.Checkpoint{Name: name, Position: 0}, nil
	}

	if err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *checkpointRepository) Advance(ctx context.Context, name string, from, to int64) error {
	if from == 0 {
		err := xcontext.DB(ctx).Create(&entity.Checkpoint{Name: name, Position: to}).Error
		if err == nil {
			return nil
		}

		if !IsDuplicateKeyError(err) {
			return err
		}
		// The row exists already, fall through to the guarded update.
	}

	tx := xcontext.DB(ctx).Model(&entity.Checkpoint{}).
		Where("name=? AND position=?", name, from).
		Update("position", to)
	if tx.Error != nil {
		return tx.Error
	}

	if tx.RowsAffected == 0 {
		return ErrStaleCheckpoint
	}

	return nil
}
