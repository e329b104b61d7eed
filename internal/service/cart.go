package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pagboka/cis485-patfutbol/internal/domain"
	"github.com/pagboka/cis485-patfutbol/internal/port"
	"github.com/pagboka/cis485-patfutbol/internal/telemetry"
	"go.uber.org/zap"
	"golang.org/x/text/currency"
)

// SessionUserKey is the session key holding the authenticated user id.
const SessionUserKey = "user_id"

// SessionMergeBlockedKey marks a guest cart whose merge was rejected as
// invalid. That cart is not merged again until its contents change.
const SessionMergeBlockedKey = "merge_blocked"

var ErrCatalogNotConfigured = errors.New("catalog is not configured")

// CartService is the entry point for cart operations. It picks the backend
// from the owner key and folds guest carts into user carts on login.
type CartService struct {
	durable  port.CartRepository
	guest    port.SessionCartRepository
	sessions port.SessionStore
	catalog  port.CatalogLookup
	metrics  *telemetry.CartMetrics
	unit     currency.Unit
	logger   *zap.Logger
}

type Option func(*CartService)

// WithCatalog rejects items that are not in the catalog.
func WithCatalog(c port.CatalogLookup) Option {
	return func(s *CartService) { s.catalog = c }
}

func WithMetrics(m *telemetry.CartMetrics) Option {
	return func(s *CartService) { s.metrics = m }
}

// WithCurrency sets the only currency carts accept. Defaults to USD.
func WithCurrency(unit currency.Unit) Option {
	return func(s *CartService) { s.unit = unit }
}

func NewCartService(
	durable port.CartRepository,
	guest port.SessionCartRepository,
	sessions port.SessionStore,
	logger *zap.Logger,
	opts ...Option,
) (*CartService, error) {
	if durable == nil {
		return nil, fmt.Errorf("durable repository is nil")
	}
	if guest == nil {
		return nil, fmt.Errorf("session repository is nil")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &CartService{
		durable:  durable,
		guest:    guest,
		sessions: sessions,
		unit:     currency.USD,
		logger:   logger.Named("cart"),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// ResolveOwner maps a session to the key its cart lives under. An
// authenticated session whose guest cart still holds items (an earlier merge
// failed, or an add raced the login) gets that cart merged first.
func (s *CartService) ResolveOwner(ctx context.Context, sessionID string) (domain.OwnerKey, error) {
	if sessionID == "" {
		return domain.OwnerKey{}, fmt.Errorf("sessionID is empty")
	}

	userID, ok, err := s.sessions.Get(ctx, sessionID, SessionUserKey)
	if err != nil {
		return domain.OwnerKey{}, fmt.Errorf("sessions.Get: %w", err)
	}
	if !ok || len(userID) == 0 {
		return domain.EphemeralOwner(sessionID), nil
	}
	user := domain.DurableOwner(string(userID))

	blocked, err := s.mergeBlocked(ctx, sessionID)
	if err != nil {
		s.logger.Warn("guest cart merge check failed",
			zap.String("session_id", sessionID), zap.String("user_id", user.ID()), zap.Error(err))
		return user, nil
	}
	if blocked {
		return user, nil
	}

	result, lines, err := s.mergeGuestCart(ctx, sessionID, user.ID())
	if err != nil {
		// the guest cart is kept, the next request retries
		s.metrics.ObserveMerge(result, lines)
		s.logger.Warn("guest cart merge retry failed",
			zap.String("session_id", sessionID), zap.String("user_id", user.ID()), zap.Error(err))
		return user, nil
	}

	// most requests find nothing to merge; those are not merges
	if result != telemetry.MergeEmpty {
		s.metrics.ObserveMerge(result, lines)
	}

	return user, nil
}

func (s *CartService) GetCart(ctx context.Context, owner domain.OwnerKey) (_ domain.Cart, err error) {
	defer s.observe(owner, "get", time.Now(), &err)

	store, err := s.store(owner)
	if err != nil {
		return domain.Cart{}, err
	}

	return store.GetCart(ctx, owner)
}

// AddItem adds item.Quantity units. An existing line keeps its price, league
// and image and only has its quantity increased.
func (s *CartService) AddItem(ctx context.Context, owner domain.OwnerKey, item domain.CartItem) (_ domain.Cart, err error) {
	defer s.observe(owner, "add", time.Now(), &err)

	store, err := s.store(owner)
	if err != nil {
		return domain.Cart{}, err
	}

	item, err = s.prepare(item)
	if err != nil {
		return domain.Cart{}, err
	}

	cart, err := store.UpsertItem(ctx, owner, item)
	if err != nil {
		return domain.Cart{}, err
	}

	if s.metrics != nil {
		s.metrics.ItemsAdded.WithLabelValues(owner.Kind().String()).Add(float64(item.Quantity))
	}
	s.logger.Debug("item added",
		zap.Stringer("owner", owner), zap.String("item_id", item.ItemID), zap.Int("quantity", item.Quantity))

	return cart, nil
}

// AddCatalogItem adds qty units of a catalog product at its listed price.
func (s *CartService) AddCatalogItem(ctx context.Context, owner domain.OwnerKey, itemID string, qty int) (domain.Cart, error) {
	if s.catalog == nil {
		return domain.Cart{}, ErrCatalogNotConfigured
	}

	product, ok := s.catalog.Lookup(itemID)
	if !ok {
		return domain.Cart{}, domain.InvalidItem("CartService.AddCatalogItem", fmt.Sprintf("item %q is not in the catalog", itemID))
	}

	return s.AddItem(ctx, owner, product.CartItem(qty))
}

// UpdateQuantity sets an absolute quantity; zero removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, owner domain.OwnerKey, itemID string, qty int) (_ domain.Cart, err error) {
	defer s.observe(owner, "set_quantity", time.Now(), &err)

	store, err := s.store(owner)
	if err != nil {
		return domain.Cart{}, err
	}

	return store.SetQuantity(ctx, owner, itemID, qty)
}

func (s *CartService) RemoveItem(ctx context.Context, owner domain.OwnerKey, itemID string) (err error) {
	defer s.observe(owner, "remove", time.Now(), &err)

	store, err := s.store(owner)
	if err != nil {
		return err
	}

	return store.RemoveItem(ctx, owner, itemID)
}

func (s *CartService) ClearCart(ctx context.Context, owner domain.OwnerKey) (err error) {
	defer s.observe(owner, "clear", time.Now(), &err)

	store, err := s.store(owner)
	if err != nil {
		return err
	}

	return store.ClearCart(ctx, owner)
}

// MergeOnAuth runs once per successful login or registration. It folds the
// session's guest cart into the user's cart and binds the user to the
// session. A failed merge does not undo the binding: the guest cart is kept
// for a later retry and the returned error wraps domain.ErrMergeIncomplete.
// A merge rejected as invalid is retried only once the guest cart changes.
func (s *CartService) MergeOnAuth(ctx context.Context, sessionID, userID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}
	if userID == "" {
		return fmt.Errorf("userID is empty")
	}

	result, lines, mergeErr := s.mergeGuestCart(ctx, sessionID, userID)
	s.metrics.ObserveMerge(result, lines)
	if mergeErr != nil {
		s.logger.Error("guest cart merge failed, guest cart kept",
			zap.String("session_id", sessionID), zap.String("user_id", userID), zap.Error(mergeErr))
	}

	if err := s.sessions.Set(ctx, sessionID, SessionUserKey, []byte(userID)); err != nil {
		return errors.Join(mergeErr, fmt.Errorf("sessions.Set: %w", err))
	}

	return mergeErr
}

// Logout destroys the session, so a guest cart that was never merged cannot
// end up in the cart of the next user of this session.
func (s *CartService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is empty")
	}

	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("sessions.Destroy: %w", err)
	}

	return nil
}

// mergeGuestCart drains the guest cart into the user's cart and reports the
// outcome as a telemetry merge result with the number of lines moved.
func (s *CartService) mergeGuestCart(ctx context.Context, sessionID, userID string) (string, int, error) {
	guest := domain.EphemeralOwner(sessionID)
	user := domain.DurableOwner(userID)

	result := telemetry.MergeEmpty
	var (
		lines       int
		fingerprint string
	)

	err := s.guest.Drain(ctx, guest, func(cart domain.Cart) error {
		fingerprint = cartFingerprint(cart)

		mergeID := cart.ID
		if mergeID == uuid.Nil {
			mergeID = uuid.New()
		}

		applied, err := s.durable.MergeItems(ctx, user, mergeID, cart.Items)
		if err != nil {
			return fmt.Errorf("durable.MergeItems: %w", err)
		}

		lines = len(cart.Items)
		if applied {
			result = telemetry.MergeApplied
		} else {
			result = telemetry.MergeSkipped
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidItem) && fingerprint != "" {
			if setErr := s.sessions.Set(ctx, sessionID, SessionMergeBlockedKey, []byte(fingerprint)); setErr != nil {
				err = errors.Join(err, fmt.Errorf("sessions.Set: %w", setErr))
			}
		}
		return telemetry.MergeFailed, 0, domain.MergeIncomplete("CartService.MergeOnAuth", err)
	}

	if result != telemetry.MergeEmpty {
		s.logger.Info("guest cart merged",
			zap.String("session_id", sessionID),
			zap.String("user_id", userID),
			zap.String("result", result),
			zap.Int("lines", lines))
	}

	return result, lines, nil
}

// mergeBlocked reports whether the guest cart is still the one whose merge
// was rejected as invalid. A marker left by a cart that has since changed is
// dropped.
func (s *CartService) mergeBlocked(ctx context.Context, sessionID string) (bool, error) {
	marker, ok, err := s.sessions.Get(ctx, sessionID, SessionMergeBlockedKey)
	if err != nil {
		return false, fmt.Errorf("sessions.Get: %w", err)
	}
	if !ok {
		return false, nil
	}

	cart, err := s.guest.GetCart(ctx, domain.EphemeralOwner(sessionID))
	if err != nil {
		return false, fmt.Errorf("guest.GetCart: %w", err)
	}
	if cartFingerprint(cart) == string(marker) {
		return true, nil
	}

	if err := s.sessions.Delete(ctx, sessionID, SessionMergeBlockedKey); err != nil {
		return false, fmt.Errorf("sessions.Delete: %w", err)
	}
	return false, nil
}

// cartFingerprint identifies a cart's contents: its id and every line's
// item id and quantity.
func cartFingerprint(cart domain.Cart) string {
	lines := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, item.ItemID+"="+strconv.Itoa(item.Quantity))
	}
	sort.Strings(lines)

	return cart.ID.String() + "|" + strings.Join(lines, ",")
}

func (s *CartService) store(owner domain.OwnerKey) (port.CartStore, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}

	switch owner.Kind() {
	case domain.OwnerEphemeral:
		return s.guest, nil
	case domain.OwnerDurable:
		return s.durable, nil
	default:
		return nil, fmt.Errorf("owner kind %s is not supported", owner.Kind())
	}
}

// prepare fills in the cart currency and applies catalog checks. Prices from
// the caller are kept as given.
func (s *CartService) prepare(item domain.CartItem) (domain.CartItem, error) {
	const op = "CartService.AddItem"

	if err := item.Validate(); err != nil {
		return domain.CartItem{}, err
	}

	if item.UnitPrice.Currency == (currency.Unit{}) {
		item.UnitPrice.Currency = s.unit
	}
	if !item.UnitPrice.SameCurrency(domain.Money{Currency: s.unit}) {
		return domain.CartItem{}, domain.InvalidItem(op,
			fmt.Sprintf("currency %s is not accepted, carts use %s", item.UnitPrice.Currency, s.unit))
	}

	if s.catalog != nil {
		if _, ok := s.catalog.Lookup(item.ItemID); !ok {
			return domain.CartItem{}, domain.InvalidItem(op, fmt.Sprintf("item %q is not in the catalog", item.ItemID))
		}
	}

	return item, nil
}

func (s *CartService) observe(owner domain.OwnerKey, op string, started time.Time, errp *error) {
	err := *errp
	if err != nil && domain.ErrorCode(err) == domain.EUNAVAILABLE {
		s.logger.Error("cart storage failed",
			zap.String("op", op), zap.Stringer("owner", owner), zap.Error(err))
	}
	s.metrics.ObserveOp(owner.Kind().String(), op, started, domain.ErrorCode(err))
}
