package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pagboka/cis485-patfutbol/internal/db"
	"github.com/pagboka/cis485-patfutbol/internal/domain"
	"github.com/pagboka/cis485-patfutbol/internal/port"
	"golang.org/x/text/currency"
)

const DefaultStorageTimeout = 5 * time.Second

// numeric_value_out_of_range, raised when a summed quantity exceeds INTEGER
const pgNumericOutOfRange = "22003"

type cartRepository struct {
	q       *db.Queries
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewCart returns the durable cart backend. Every call runs under timeout;
// a non-positive timeout uses DefaultStorageTimeout.
func NewCart(pool *pgxpool.Pool, timeout time.Duration) (port.CartRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	if timeout <= 0 {
		timeout = DefaultStorageTimeout
	}

	return &cartRepository{
		q:       db.New(pool),
		pool:    pool,
		timeout: timeout,
	}, nil
}

func NewCartWithTx(tx pgx.Tx) port.CartRepository {
	return &cartRepository{
		q:       db.New(tx),
		pool:    nil, // use provided transaction instead
		timeout: DefaultStorageTimeout,
	}
}

func (r *cartRepository) GetCart(ctx context.Context, owner domain.OwnerKey) (domain.Cart, error) {
	if err := checkDurable(owner); err != nil {
		return domain.Cart{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cart, err := getCart(ctx, r.q, owner)
	if err != nil {
		return domain.Cart{}, domain.StorageUnavailable("cartRepository.GetCart", err)
	}

	return cart, nil
}

func (r *cartRepository) UpsertItem(ctx context.Context, owner domain.OwnerKey, item domain.CartItem) (domain.Cart, error) {
	if err := checkDurable(owner); err != nil {
		return domain.Cart{}, err
	}
	if err := item.Validate(); err != nil {
		return domain.Cart{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cart, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (domain.Cart, error) {
		if _, err := q.UpsertItem(ctx, mapItemToUpsertParams(owner.ID(), item)); err != nil {
			return domain.Cart{}, fmt.Errorf("q.UpsertItem: %w", err)
		}
		return getCart(ctx, q, owner)
	})
	if err != nil {
		return domain.Cart{}, storageError("cartRepository.UpsertItem", err)
	}

	return cart, nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, owner domain.OwnerKey, itemID string, quantity int) (domain.Cart, error) {
	if err := checkDurable(owner); err != nil {
		return domain.Cart{}, err
	}
	if itemID == "" {
		return domain.Cart{}, domain.InvalidItem("cartRepository.SetQuantity", "ItemID is required")
	}
	if quantity != 0 {
		if err := domain.CheckQuantity("cartRepository.SetQuantity", quantity); err != nil {
			return domain.Cart{}, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cart, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (domain.Cart, error) {
		if quantity == 0 {
			if _, err := q.DeleteItem(ctx, db.DeleteItemParams{OwnerID: owner.ID(), ItemID: itemID}); err != nil {
				return domain.Cart{}, fmt.Errorf("q.DeleteItem: %w", err)
			}
		} else {
			_, err := q.SetItemQuantity(ctx, db.SetItemQuantityParams{
				OwnerID:  owner.ID(),
				ItemID:   itemID,
				Quantity: int32(quantity),
			})
			if err != nil {
				return domain.Cart{}, fmt.Errorf("q.SetItemQuantity: %w", err)
			}
		}
		return getCart(ctx, q, owner)
	})
	if err != nil {
		return domain.Cart{}, storageError("cartRepository.SetQuantity", err)
	}

	return cart, nil
}

func (r *cartRepository) RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID string) error {
	if err := checkDurable(owner); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.q.DeleteItem(ctx, db.DeleteItemParams{
		OwnerID: owner.ID(),
		ItemID:  itemID,
	})
	if err != nil {
		return domain.StorageUnavailable("cartRepository.RemoveItem", fmt.Errorf("q.DeleteItem: %w", err))
	}

	return nil
}

func (r *cartRepository) ClearCart(ctx context.Context, owner domain.OwnerKey) error {
	if err := checkDurable(owner); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if _, err := r.q.ClearCart(ctx, owner.ID()); err != nil {
		return domain.StorageUnavailable("cartRepository.ClearCart", fmt.Errorf("q.ClearCart: %w", err))
	}

	return nil
}

// MergeItems adds items to the owner's cart in one transaction. Lines already
// merged under mergeID only contribute the quantity added since, so a replay
// of a cart that kept growing after an earlier merge moves just the delta.
func (r *cartRepository) MergeItems(ctx context.Context, owner domain.OwnerKey, mergeID uuid.UUID, items []domain.CartItem) (bool, error) {
	if err := checkDurable(owner); err != nil {
		return false, err
	}
	if mergeID == uuid.Nil {
		return false, fmt.Errorf("mergeID is empty")
	}
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return false, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	applied, err := withTx(ctx, r.pool, r.q, func(q *db.Queries) (bool, error) {
		inserted, err := q.InsertMerge(ctx, db.InsertMergeParams{
			MergeID:   mergeID,
			OwnerID:   owner.ID(),
			ItemCount: int32(len(items)),
		})
		if err != nil {
			return false, fmt.Errorf("q.InsertMerge: %w", err)
		}
		if inserted == 0 {
			if err := q.LockMerge(ctx, mergeID); err != nil {
				return false, fmt.Errorf("q.LockMerge: %w", err)
			}
		}

		rows, err := q.GetMergeLines(ctx, mergeID)
		if err != nil {
			return false, fmt.Errorf("q.GetMergeLines: %w", err)
		}
		merged := make(map[string]int, len(rows))
		for _, row := range rows {
			merged[row.ItemID] = int(row.Quantity)
		}

		var applied bool
		for _, item := range items {
			delta := item.Quantity - merged[item.ItemID]
			if delta <= 0 {
				continue
			}

			params := mapItemToUpsertParams(owner.ID(), item)
			params.Quantity = int32(delta)
			if _, err := q.UpsertItem(ctx, params); err != nil {
				return false, fmt.Errorf("q.UpsertItem[%s]: %w", item.ItemID, err)
			}

			err := q.UpsertMergeLine(ctx, db.UpsertMergeLineParams{
				MergeID:  mergeID,
				ItemID:   item.ItemID,
				Quantity: int32(item.Quantity),
			})
			if err != nil {
				return false, fmt.Errorf("q.UpsertMergeLine[%s]: %w", item.ItemID, err)
			}
			applied = true
		}
		return applied, nil
	})
	if err != nil {
		return false, storageError("cartRepository.MergeItems", err)
	}

	return applied, nil
}

func getCart(ctx context.Context, q *db.Queries, owner domain.OwnerKey) (domain.Cart, error) {
	rows, err := q.GetCart(ctx, owner.ID())
	if err != nil {
		return domain.Cart{}, fmt.Errorf("q.GetCart: %w", err)
	}

	items, err := mapGetCartRowsToDomain(rows)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("mapGetCartRowsToDomain: %w", err)
	}

	return domain.Cart{
		Owner: owner,
		Items: items,
	}, nil
}

func checkDurable(owner domain.OwnerKey) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if !owner.IsDurable() {
		return fmt.Errorf("owner %s is not durable", owner)
	}
	return nil
}

// storageError maps a quantity sum beyond INTEGER to InvalidItem. Any other
// failure is a storage failure.
func storageError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgNumericOutOfRange {
		return &domain.Error{Code: domain.EINVALID, Op: op, Message: "quantity is out of range", Err: err}
	}
	return domain.StorageUnavailable(op, err)
}

func mapItemToUpsertParams(ownerID string, item domain.CartItem) db.UpsertItemParams {
	return db.UpsertItemParams{
		OwnerID:       ownerID,
		ItemID:        item.ItemID,
		Quantity:      int32(item.Quantity),
		PriceAmount:   item.UnitPrice.Amount,
		PriceCurrency: item.UnitPrice.Currency.String(),
		League:        item.League,
		ImageRef:      item.ImageRef,
	}
}

func mapGetCartRowToDomain(row db.GetCartRow) (domain.CartItem, error) {
	parsedCurrency, err := currency.ParseISO(row.PriceCurrency)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("currency[%s] is not valid: %w", row.PriceCurrency, err)
	}

	return domain.CartItem{
		ItemID:    row.ItemID,
		Quantity:  int(row.Quantity),
		UnitPrice: domain.Money{Amount: row.PriceAmount, Currency: parsedCurrency},
		League:    row.League,
		ImageRef:  row.ImageRef,
		CreatedAt: row.CreatedAt,
	}, nil
}

func mapGetCartRowsToDomain(rows []db.GetCartRow) ([]domain.CartItem, error) {
	var items []domain.CartItem

	for _, row := range rows {
		item, err := mapGetCartRowToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapGetCartRowToDomain: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}
