package lifecycle

import (
	"context"

	"github.com/openpantry/pantry/src/utils/model"
)

// Store is the slice of the remote store the engine needs. The
// production implementation is model.Store, tests use an in-memory
// fake. No multi-row transactions are assumed, every multi-step
// operation is designed to be safely re-runnable.
type Store interface {
	GetItem(ctx context.Context, id string) (*model.Item, error)
	InsertItem(ctx context.Context, item *model.Item) error
	UpdateItemStatus(ctx context.Context, id string, status model.ItemStatus) error
	DeleteItem(ctx context.Context, id string) error

	GetClaim(ctx context.Context, id string) (*model.Claim, error)
	InsertClaim(ctx context.Context, claim *model.Claim) error
	UpdateClaim(ctx context.Context, id string, updates map[string]any) error
	DeleteClaim(ctx context.Context, id string) error
	ClaimsByItem(ctx context.Context, itemId string) ([]*model.Claim, error)
}
