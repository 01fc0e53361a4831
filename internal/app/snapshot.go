package app

import (
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/foundation/internal/domain"
	"github.com/bft-labs/foundation/pkg/config"
	"github.com/bft-labs/foundation/pkg/log"
)

// Snapshot is an immutable view of the coordinator state.
//
// Status Initialized implies Config and Logger are set and Err is nil.
// Status Failed implies Err is set.
type Snapshot struct {
	Status domain.Status
	Config *config.Config
	Logger log.Configurable
	Err    error

	// Epoch identifies the initialization sequence that produced the snapshot.
	// It is uuid.Nil while uninitialized.
	Epoch     uuid.UUID
	UpdatedAt time.Time
}

func newSnapshot(status domain.Status, epoch uuid.UUID) *Snapshot {
	return &Snapshot{Status: status, Epoch: epoch, UpdatedAt: time.Now()}
}

// Initialized reports whether the snapshot holds a usable config and logger.
func (s Snapshot) Initialized() bool {
	return s.Status == domain.StatusInitialized
}
