package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pagboka/cis485-patfutbol/internal/domain"
	"github.com/pagboka/cis485-patfutbol/internal/keylock"
	"github.com/pagboka/cis485-patfutbol/internal/port"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// SessionCartKey is the session key holding the guest cart.
const SessionCartKey = "cart"

type sessionCartRepository struct {
	store port.SessionStore
	locks *keylock.Locker
	now   func() time.Time
}

// NewSessionCart returns the ephemeral cart backend. locks serializes
// mutations per session and may be shared with other session writers.
func NewSessionCart(store port.SessionStore, locks *keylock.Locker) (port.SessionCartRepository, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if locks == nil {
		locks = keylock.New()
	}

	return &sessionCartRepository{
		store: store,
		locks: locks,
		now:   time.Now,
	}, nil
}

type sessionCart struct {
	ID    uuid.UUID         `json:"id"`
	Items []sessionCartItem `json:"items"`
}

type sessionCartItem struct {
	ItemID        string          `json:"item_id"`
	Quantity      int             `json:"quantity"`
	PriceAmount   decimal.Decimal `json:"price_amount"`
	PriceCurrency string          `json:"price_currency"`
	League        string          `json:"league,omitempty"`
	ImageRef      string          `json:"image_ref,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (r *sessionCartRepository) GetCart(ctx context.Context, owner domain.OwnerKey) (domain.Cart, error) {
	if err := checkEphemeral(owner); err != nil {
		return domain.Cart{}, err
	}

	sc, err := r.load(ctx, owner)
	if err != nil {
		return domain.Cart{}, err
	}

	return mapSessionCartToDomain(owner, sc)
}

func (r *sessionCartRepository) UpsertItem(ctx context.Context, owner domain.OwnerKey, item domain.CartItem) (domain.Cart, error) {
	if err := checkEphemeral(owner); err != nil {
		return domain.Cart{}, err
	}
	if err := item.Validate(); err != nil {
		return domain.Cart{}, err
	}

	return r.mutate(ctx, owner, func(sc *sessionCart) error {
		for i := range sc.Items {
			if sc.Items[i].ItemID != item.ItemID {
				continue
			}
			if sc.Items[i].Quantity > domain.MaxQuantity-item.Quantity {
				return domain.InvalidItem("sessionCartRepository.UpsertItem",
					fmt.Sprintf("quantity %d plus %d is out of range", sc.Items[i].Quantity, item.Quantity))
			}
			sc.Items[i].Quantity += item.Quantity
			return nil
		}
		sc.Items = append(sc.Items, mapItemToSession(item, r.now()))
		return nil
	})
}

func (r *sessionCartRepository) SetQuantity(ctx context.Context, owner domain.OwnerKey, itemID string, quantity int) (domain.Cart, error) {
	if err := checkEphemeral(owner); err != nil {
		return domain.Cart{}, err
	}
	if itemID == "" {
		return domain.Cart{}, domain.InvalidItem("sessionCartRepository.SetQuantity", "ItemID is required")
	}
	if quantity != 0 {
		if err := domain.CheckQuantity("sessionCartRepository.SetQuantity", quantity); err != nil {
			return domain.Cart{}, err
		}
	}

	return r.mutate(ctx, owner, func(sc *sessionCart) error {
		if quantity == 0 {
			sc.Items = removeSessionItem(sc.Items, itemID)
			return nil
		}
		for i := range sc.Items {
			if sc.Items[i].ItemID == itemID {
				sc.Items[i].Quantity = quantity
				return nil
			}
		}
		return nil
	})
}

func (r *sessionCartRepository) RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID string) error {
	if err := checkEphemeral(owner); err != nil {
		return err
	}

	_, err := r.mutate(ctx, owner, func(sc *sessionCart) error {
		sc.Items = removeSessionItem(sc.Items, itemID)
		return nil
	})
	return err
}

// ClearCart drops the cart from the session; the next mutation starts a new
// cart with a new ID.
func (r *sessionCartRepository) ClearCart(ctx context.Context, owner domain.OwnerKey) error {
	if err := checkEphemeral(owner); err != nil {
		return err
	}

	unlock, err := r.locks.Lock(ctx, owner.String())
	if err != nil {
		return fmt.Errorf("locks.Lock: %w", err)
	}
	defer unlock()

	if err := r.store.Delete(ctx, owner.ID(), SessionCartKey); err != nil {
		return fmt.Errorf("store.Delete: %w", err)
	}

	return nil
}

func (r *sessionCartRepository) Drain(ctx context.Context, owner domain.OwnerKey, fn func(cart domain.Cart) error) error {
	if err := checkEphemeral(owner); err != nil {
		return err
	}

	unlock, err := r.locks.Lock(ctx, owner.String())
	if err != nil {
		return fmt.Errorf("locks.Lock: %w", err)
	}
	defer unlock()

	sc, err := r.load(ctx, owner)
	if err != nil {
		return err
	}
	if len(sc.Items) == 0 {
		return nil
	}

	cart, err := mapSessionCartToDomain(owner, sc)
	if err != nil {
		return err
	}

	if err := fn(cart); err != nil {
		return err
	}

	if err := r.store.Delete(ctx, owner.ID(), SessionCartKey); err != nil {
		return fmt.Errorf("store.Delete: %w", err)
	}

	return nil
}

// mutate applies fn to the stored cart under the session lock. Nothing is
// written when fn fails.
func (r *sessionCartRepository) mutate(ctx context.Context, owner domain.OwnerKey, fn func(sc *sessionCart) error) (domain.Cart, error) {
	unlock, err := r.locks.Lock(ctx, owner.String())
	if err != nil {
		return domain.Cart{}, fmt.Errorf("locks.Lock: %w", err)
	}
	defer unlock()

	sc, err := r.load(ctx, owner)
	if err != nil {
		return domain.Cart{}, err
	}

	if err := fn(&sc); err != nil {
		return domain.Cart{}, err
	}

	if sc.ID == uuid.Nil {
		if len(sc.Items) == 0 {
			// nothing was ever stored, keep the session untouched
			return mapSessionCartToDomain(owner, sc)
		}
		sc.ID = uuid.New()
	}

	data, err := json.Marshal(sc)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("json.Marshal: %w", err)
	}
	if err := r.store.Set(ctx, owner.ID(), SessionCartKey, data); err != nil {
		return domain.Cart{}, fmt.Errorf("store.Set: %w", err)
	}

	return mapSessionCartToDomain(owner, sc)
}

func (r *sessionCartRepository) load(ctx context.Context, owner domain.OwnerKey) (sessionCart, error) {
	data, ok, err := r.store.Get(ctx, owner.ID(), SessionCartKey)
	if err != nil {
		return sessionCart{}, fmt.Errorf("store.Get: %w", err)
	}
	if !ok || len(data) == 0 {
		return sessionCart{}, nil
	}

	var sc sessionCart
	if err := json.Unmarshal(data, &sc); err != nil {
		return sessionCart{}, fmt.Errorf("json.Unmarshal: %w", err)
	}

	return sc, nil
}

func checkEphemeral(owner domain.OwnerKey) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if !owner.IsEphemeral() {
		return fmt.Errorf("owner %s is not ephemeral", owner)
	}
	return nil
}

func removeSessionItem(items []sessionCartItem, itemID string) []sessionCartItem {
	out := items[:0]
	for _, item := range items {
		if item.ItemID != itemID {
			out = append(out, item)
		}
	}
	return out
}

func mapItemToSession(item domain.CartItem, now time.Time) sessionCartItem {
	return sessionCartItem{
		ItemID:        item.ItemID,
		Quantity:      item.Quantity,
		PriceAmount:   item.UnitPrice.Amount,
		PriceCurrency: item.UnitPrice.Currency.String(),
		League:        item.League,
		ImageRef:      item.ImageRef,
		CreatedAt:     now,
	}
}

func mapSessionCartToDomain(owner domain.OwnerKey, sc sessionCart) (domain.Cart, error) {
	cart := domain.Cart{
		ID:    sc.ID,
		Owner: owner,
	}

	for _, item := range sc.Items {
		parsedCurrency, err := currency.ParseISO(item.PriceCurrency)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("currency[%s] is not valid: %w", item.PriceCurrency, err)
		}

		cart.Items = append(cart.Items, domain.CartItem{
			ItemID:    item.ItemID,
			Quantity:  item.Quantity,
			UnitPrice: domain.Money{Amount: item.PriceAmount, Currency: parsedCurrency},
			League:    item.League,
			ImageRef:  item.ImageRef,
			CreatedAt: item.CreatedAt,
		})
	}

	return cart, nil
}
