package catalog

import (
	"slices"
)

// Item is one entry of the clothing collection. Values handed out by the
// catalog are copies; nothing downstream mutates the stored records.
type Item struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Price    string   `json:"price" yaml:"price"`
	Image    string   `json:"image" yaml:"image"`
	Sizes    []string `json:"sizes" yaml:"sizes"`
	Colors   []string `json:"colors" yaml:"colors"`
	Category string   `json:"category" yaml:"category"`
}

func (i Item) HasSize(size string) bool {
	return slices.Contains(i.Sizes, size)
}

func (i Item) HasColor(color string) bool {
	return slices.Contains(i.Colors, color)
}

// DefaultSize is the first listed size.
func (i Item) DefaultSize() string {
	if len(i.Sizes) == 0 {
		return ""
	}
	return i.Sizes[0]
}

// DefaultColor is the first listed color.
func (i Item) DefaultColor() string {
	if len(i.Colors) == 0 {
		return ""
	}
	return i.Colors[0]
}

func (i Item) Clone() Item {
	i.Sizes = slices.Clone(i.Sizes)
	i.Colors = slices.Clone(i.Colors)
	return i
}
