package storage

import (
	"fmt"

	"github.com/poiesic/docchat/core"
)

// Backends routes a session backend to the repository that holds its records.
type Backends map[core.Backend]DocumentRepository

// For returns the repository for backend.
func (b Backends) For(backend core.Backend) (DocumentRepository, error) {
	repo, ok := b[backend]
	if !ok || repo == nil {
		return nil, fmt.Errorf("%w: %q has no repository", core.ErrUnknownBackend, backend)
	}
	return repo, nil
}
