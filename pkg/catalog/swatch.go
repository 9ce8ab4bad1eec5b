package catalog

const DefaultSwatch = "#cccccc"

var swatches = map[string]string{
	"Голубой": "#87CEEB",
	"Розовый": "#FFC0CB",
	"Белый":   "#FFFFFF",
	"Синий":   "#4169E1",
	"Черный":  "#000000",
	"Бежевый": "#F5F5DC",
}

// Swatch returns the hex color used for the color dot of a named color.
func Swatch(color string) string {
	if hex, ok := swatches[color]; ok {
		return hex
	}
	return DefaultSwatch
}
