// Package source loads the analysis input (level history, tickets and display
// metadata) from the upstream monitoring API or a local snapshot.
package source

import (
	"context"

	"github.com/Fantasim/truthserum/internal/models"
)

// Source produces one immutable Dataset per call.
type Source interface {
	Fetch(ctx context.Context) (*models.Dataset, error)
	Name() string
}
