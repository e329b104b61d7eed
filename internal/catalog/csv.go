package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pagboka/cis485-patfutbol/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Parse reads products of one league from CSV. Columns are matched by header
// name; unknown columns are ignored. A row without an id uses its name as id.
func Parse(r io.Reader, league string, unit currency.Unit) ([]Product, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cr.Read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	if _, ok := cols["price"]; !ok {
		return nil, fmt.Errorf("price column is missing")
	}
	if _, ok := cols["id"]; !ok {
		if _, ok := cols["name"]; !ok {
			return nil, fmt.Errorf("id and name columns are missing")
		}
	}

	var products []Product
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cr.Read line %d: %w", line, err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		p := Product{
			ID:     field("id"),
			Name:   field("name"),
			League: league,
			Image:  field("image"),
		}
		if p.ID == "" {
			p.ID = p.Name
		}
		if p.ID == "" {
			return nil, fmt.Errorf("line %d: id is empty", line)
		}

		price, err := decimal.NewFromString(field("price"))
		if err != nil {
			return nil, fmt.Errorf("line %d: price[%s] is not valid: %w", line, field("price"), err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("line %d: price[%s] is negative", line, price)
		}
		p.Price = domain.NewMoney(price, unit)

		if p.MaxPrice, err = optionalDecimal(field("maxprice")); err != nil {
			return nil, fmt.Errorf("line %d: maxPrice: %w", line, err)
		}
		if p.OldPrice, err = optionalDecimal(field("oldprice")); err != nil {
			return nil, fmt.Errorf("line %d: oldPrice: %w", line, err)
		}

		if v := field("rating"); v != "" {
			if p.Rating, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("line %d: rating[%s] is not valid: %w", line, v, err)
			}
		}

		products = append(products, p)
	}

	return products, nil
}

func optionalDecimal(v string) (decimal.NullDecimal, error) {
	if v == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
