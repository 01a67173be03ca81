package model

import "github.com/ZetsyKe/vacvpn-sub000/internal/domain"

// Tariff is a static catalog entry: a purchasable duration with a fixed price.
type Tariff struct {
	ID           string
	DurationDays int
	Price        int64 // RUB
	Description  string
}

// NewTariff validates and constructs a catalog entry.
func NewTariff(id string, durationDays int, price int64, description string) (Tariff, error) {
	if id == "" || durationDays <= 0 || price <= 0 {
		return Tariff{}, domain.ErrInvalidArgument
	}
	return Tariff{ID: id, DurationDays: durationDays, Price: price, Description: description}, nil
}

// TariffCatalog is the immutable tariff lookup, loaded once at startup.
type TariffCatalog struct {
	byID  map[string]Tariff
	order []string
}

func NewTariffCatalog(tariffs []Tariff) (*TariffCatalog, error) {
	c := &TariffCatalog{byID: make(map[string]Tariff, len(tariffs))}
	for _, t := range tariffs {
		if t.ID == "" || t.DurationDays <= 0 || t.Price <= 0 {
			return nil, domain.ErrInvalidArgument
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, domain.ErrInvalidArgument
		}
		c.byID[t.ID] = t
		c.order = append(c.order, t.ID)
	}
	return c, nil
}

func (c *TariffCatalog) Find(id string) (Tariff, error) {
	t, ok := c.byID[id]
	if !ok {
		return Tariff{}, domain.ErrUnknownTariff
	}
	return t, nil
}

// List returns tariffs in declaration order.
func (c *TariffCatalog) List() []Tariff {
	out := make([]Tariff, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
