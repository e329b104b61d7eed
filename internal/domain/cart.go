package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	// ID identifies an ephemeral cart instance; durable carts have uuid.Nil.
	ID    uuid.UUID
	Owner OwnerKey
	Items []CartItem
}

// MaxQuantity bounds a line quantity, including the sum after repeated adds
// and merges. It matches the durable INTEGER column.
const MaxQuantity = math.MaxInt32

// MaxUnitPrice is the exclusive upper bound of a unit price; prices carry at
// most PriceScale decimal places.
var MaxUnitPrice = decimal.New(1, 10)

const PriceScale = 2

type CartItem struct {
	ItemID    string `validate:"required,max=128"`
	Quantity  int    `validate:"gte=1,lte=2147483647"`
	UnitPrice Money
	League    string `validate:"max=64"`
	ImageRef  string `validate:"max=512"`

	CreatedAt time.Time
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) Item(itemID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ItemID == itemID {
			return item, true
		}
	}
	return CartItem{}, false
}

// ItemCount is the number of units in the cart, not the number of lines.
func (c Cart) ItemCount() int {
	var n int
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

func (c Cart) Total() (Money, error) {
	if len(c.Items) == 0 {
		return Money{Amount: decimal.Zero}, nil
	}

	total := Money{Amount: decimal.Zero, Currency: c.Items[0].UnitPrice.Currency}
	for _, item := range c.Items {
		if !item.UnitPrice.SameCurrency(total) {
			return Money{}, fmt.Errorf("mixed currencies in cart: %s and %s", total.Currency, item.UnitPrice.Currency)
		}
		total.Amount = total.Amount.Add(item.UnitPrice.Mul(item.Quantity).Amount)
	}

	return total, nil
}

type OwnerKind int

const (
	OwnerEphemeral OwnerKind = iota + 1
	OwnerDurable
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerEphemeral:
		return "ephemeral"
	case OwnerDurable:
		return "durable"
	default:
		return "unknown"
	}
}

// OwnerKey is either Ephemeral(sessionID) or Durable(userID).
type OwnerKey struct {
	kind OwnerKind
	id   string
}

func EphemeralOwner(sessionID string) OwnerKey {
	return OwnerKey{kind: OwnerEphemeral, id: sessionID}
}

func DurableOwner(userID string) OwnerKey {
	return OwnerKey{kind: OwnerDurable, id: userID}
}

func (k OwnerKey) Kind() OwnerKind {
	return k.kind
}

func (k OwnerKey) ID() string {
	return k.id
}

func (k OwnerKey) IsEphemeral() bool {
	return k.kind == OwnerEphemeral
}

func (k OwnerKey) IsDurable() bool {
	return k.kind == OwnerDurable
}

func (k OwnerKey) Validate() error {
	if k.kind != OwnerEphemeral && k.kind != OwnerDurable {
		return fmt.Errorf("owner kind is unknown")
	}
	if k.id == "" {
		return fmt.Errorf("ownerID is empty")
	}
	return nil
}

// String is also used as the lock key, so the two kinds never collide.
func (k OwnerKey) String() string {
	return k.kind.String() + ":" + k.id
}
