package catalog

import "slices"

type Color string

// Colors is the palette players pick from.
var Colors = []Color{"red", "orange", "yellow", "green", "cyan", "blue", "purple", "pink"}

func ValidColor(c Color) bool {
	return slices.Contains(Colors, c)
}

type Category string

// Categories are the twelve artifact types in canonical order. Vote ties
// are broken by this order.
var Categories = []Category{
	"rat", "ox", "tiger", "rabbit", "dragon", "snake",
	"horse", "goat", "monkey", "rooster", "dog", "pig",
}

// CategoryRank returns the canonical position of c, or len(Categories) if
// c is unknown.
func CategoryRank(c Category) int {
	if i := slices.Index(Categories, c); i >= 0 {
		return i
	}
	return len(Categories)
}
