package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("catalog: item not found")
	ErrInvalid  = errors.New("catalog: invalid item")
)

// Catalog is a read-only ordered collection of items.
type Catalog struct {
	items []Item
	byID  map[string]int
}

func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		byID:  make(map[string]int, len(items)),
	}
	for _, it := range items {
		if err := validate(it); err != nil {
			return nil, err
		}
		if _, ok := c.byID[it.ID]; ok {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalid, it.ID)
		}
		c.byID[it.ID] = len(c.items)
		c.items = append(c.items, it.Clone())
	}

	return c, nil
}

func validate(it Item) error {
	switch {
	case it.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalid)
	case len(it.Sizes) == 0:
		return fmt.Errorf("%w: item %q has no sizes", ErrInvalid, it.ID)
	case len(it.Colors) == 0:
		return fmt.Errorf("%w: item %q has no colors", ErrInvalid, it.ID)
	}
	return nil
}

func (c *Catalog) Len() int {
	return len(c.items)
}

// Items returns the items in catalog order.
func (c *Catalog) Items() []Item {
	res := make([]Item, len(c.items))
	for i, it := range c.items {
		res[i] = it.Clone()
	}
	return res
}

func (c *Catalog) Get(id string) (Item, error) {
	idx, ok := c.byID[id]
	if !ok {
		return Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c.items[idx].Clone(), nil
}
