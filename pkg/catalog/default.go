package catalog

var defaultItems = []Item{
	{
		ID:       "1",
		Name:     "Голубое платье принцессы",
		Price:    "4 990 ₽",
		Image:    "/img/94a41dd4-6120-4e09-938b-0db2c1dacd53.jpg",
		Sizes:    []string{"XS", "S", "M", "L"},
		Colors:   []string{"Голубой", "Розовый", "Белый"},
		Category: "Платья",
	},
	{
		ID:       "2",
		Name:     "Джинсовая куртка",
		Price:    "3 490 ₽",
		Image:    "/img/b2e538f4-8932-4c59-911b-e206a41a1eb5.jpg",
		Sizes:    []string{"XS", "S", "M", "L", "XL"},
		Colors:   []string{"Синий", "Черный", "Белый"},
		Category: "Куртки",
	},
	{
		ID:       "3",
		Name:     "Розовый топ",
		Price:    "2 290 ₽",
		Image:    "/img/b2e538f4-8932-4c59-911b-e206a41a1eb5.jpg",
		Sizes:    []string{"XS", "S", "M"},
		Colors:   []string{"Розовый", "Белый", "Бежевый"},
		Category: "Топы",
	},
}

// Default returns the built-in collection.
func Default() *Catalog {
	c, err := New(defaultItems)
	if err != nil {
		panic(err)
	}
	return c
}
