package entity

import "time"

// Checkpoint persists the cursor of a stream consumer so a restarted worker
// resumes where the previous run stopped. Updated with compare-and-swap,
// never through in-memory state.
type Checkpoint struct {
	Name      string `gorm:"primaryKey"`
	Position  int64
	UpdatedAt time.Time
}
