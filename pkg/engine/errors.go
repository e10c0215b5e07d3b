package engine

import (
	"fmt"

	"github.com/cfortin/slapshot/pkg/engine/types"
)

// ErrNotResumable is returned when a recovery state cannot be turned
// back into a live game.
type ErrNotResumable struct {
	Phase types.Phase
}

func (e *ErrNotResumable) Error() string {
	return fmt.Sprintf("saved game in phase %q is not resumable", e.Phase)
}

func IsNotResumable(err error) bool {
	_, ok := err.(*ErrNotResumable)
	return ok
}
