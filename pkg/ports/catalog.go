package ports

import (
	"context"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// Catalog gives the engine read access to the library.
// The engine holds the returned flow only for the duration of one operation.
type Catalog interface {
	// Flow returns the flow with the given id, or domain.ErrFlowNotFound.
	Flow(ctx context.Context, id string) (*domain.Flow, error)

	// Template returns the template with the given id, or domain.ErrTemplateNotFound.
	Template(ctx context.Context, id string) (*domain.Template, error)
}
