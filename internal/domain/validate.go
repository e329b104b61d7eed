package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the item before it reaches any storage.
func (i CartItem) Validate() error {
	const op = "CartItem.Validate"

	if err := validate.Struct(i); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return InvalidItem(op, describe(verrs))
		}
		return InvalidItem(op, err.Error())
	}

	if strings.TrimSpace(i.ItemID) == "" {
		return InvalidItem(op, "ItemID is blank")
	}
	if err := checkPrice(i.UnitPrice.Amount); err != nil {
		return InvalidItem(op, err.Error())
	}

	return nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fe.Field()+" is required")
		case "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

func checkPrice(amount decimal.Decimal) error {
	switch {
	case amount.IsNegative():
		return fmt.Errorf("UnitPrice %s is negative", amount)
	case !amount.Equal(amount.Round(PriceScale)):
		return fmt.Errorf("UnitPrice %s has more than %d decimal places", amount, PriceScale)
	case amount.GreaterThanOrEqual(MaxUnitPrice):
		return fmt.Errorf("UnitPrice %s must be less than %s", amount, MaxUnitPrice)
	}
	return nil
}

// CheckQuantity reports whether qty is a storable line quantity.
func CheckQuantity(op string, qty int) error {
	if qty < 1 || qty > MaxQuantity {
		return InvalidItem(op, fmt.Sprintf("quantity %d is out of range", qty))
	}
	return nil
}
