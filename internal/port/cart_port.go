package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/pagboka/cis485-patfutbol/internal/catalog"
	"github.com/pagboka/cis485-patfutbol/internal/domain"
)

// CartStore is implemented by both the session-backed and the database-backed
// cart. Mutations are atomic per owner key.
type CartStore interface {
	GetCart(ctx context.Context, owner domain.OwnerKey) (domain.Cart, error)
	UpsertItem(ctx context.Context, owner domain.OwnerKey, item domain.CartItem) (domain.Cart, error)
	SetQuantity(ctx context.Context, owner domain.OwnerKey, itemID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID string) error
	ClearCart(ctx context.Context, owner domain.OwnerKey) error
}

// CartDrainer hands the current cart to fn and empties it only if fn succeeds.
// No other mutation of the same owner can interleave with fn.
type CartDrainer interface {
	Drain(ctx context.Context, owner domain.OwnerKey, fn func(cart domain.Cart) error) error
}

// CartMerger folds items into the owner's cart as one all-or-nothing batch.
// Quantities already merged under mergeID are not added again; applied is
// false when nothing new was added.
type CartMerger interface {
	MergeItems(ctx context.Context, owner domain.OwnerKey, mergeID uuid.UUID, items []domain.CartItem) (bool, error)
}

type CartRepository interface {
	CartStore
	CartMerger
}

type SessionCartRepository interface {
	CartStore
	CartDrainer
}

// SessionStore is the session-scoped key/value state of one visitor.
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, bool, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	Delete(ctx context.Context, sessionID, key string) error
	Destroy(ctx context.Context, sessionID string) error
}

type CatalogLookup interface {
	Lookup(itemID string) (catalog.Product, bool)
}
