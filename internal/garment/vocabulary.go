package garment

// synonymGroup maps a set of raw classifier labels onto one canonical tag.
// An empty canonical means the matched label is already canonical and is
// kept as-is (colors, fits, and most named garments behave this way).
type synonymGroup struct {
	canonical string
	terms     []string
}

// vocabulary is evaluated top to bottom; the first group containing a raw
// label wins. Order encodes the tie-break policy: garment types first,
// then colors, then neckline/sleeve/fit descriptors.
var vocabulary = []synonymGroup{
	// Garment types.
	{canonical: "t-shirt", terms: []string{"t-shirt", "shirt", "top", "tee"}},
	{terms: []string{"hoodie", "sweatshirt", "sweater", "jacket", "coat", "kurta", "blouse", "polo", "tank", "cardigan"}},
	// "shorts" stays its own canonical tag; every other lower-body synonym
	// collapses to "pants".
	{canonical: "shorts", terms: []string{"shorts"}},
	{canonical: "pants", terms: []string{"pants", "jeans", "trousers", "cargo", "chinos", "joggers", "leggings"}},
	{canonical: "dress", terms: []string{"dress", "gown"}},
	{canonical: "skirt", terms: []string{"skirt"}},
	{canonical: "sneakers", terms: []string{"sneaker", "sneakers", "running shoe"}},
	{canonical: "shoes", terms: []string{
		"shoe", "shoes", "boots", "loafers", "heels", "sandal", "clog",
		"geta", "patten", "sabot", "loafer", "doormat", "welcome mat",
		"shoe shop", "shoe-shop", "shoe store",
	}},
	{terms: []string{"cap", "hat", "beanie", "beret"}},
	// Colors.
	{terms: []string{"black", "white", "red", "blue", "green", "yellow", "beige", "brown", "grey", "gray"}},
	// Neckline, sleeve, and fit descriptors.
	{terms: []string{"round-neck", "v-neck", "collared"}},
	{terms: []string{"short-sleeve", "long-sleeve"}},
	{terms: []string{"slim-fit", "oversized", "regular-fit"}},
}

// canonicalByTerm is built once from vocabulary so Normalize stays a flat
// map lookup while the declarative table above remains the source of truth.
var canonicalByTerm = func() map[string]string {
	m := make(map[string]string, 64)
	for _, group := range vocabulary {
		for _, term := range group.terms {
			if _, taken := m[term]; taken {
				continue
			}
			label := group.canonical
			if label == "" {
				label = term
			}
			m[term] = label
		}
	}
	return m
}()

// Keyword sets for category inference. These accept raw classifier output
// as well as canonical tags, so Infer stays total regardless of whether the
// caller normalized first.
var (
	dressTerms = []string{"dress", "gown"}

	headwearTerms = []string{"cap", "hat", "beanie", "beret"}

	footwearTerms = []string{
		"shoe", "shoes", "sneaker", "sneakers", "boots", "loafers", "heels",
		"sandal", "clog", "geta", "patten", "sabot", "loafer", "doormat",
		"welcome mat", "shoe shop", "shoe-shop", "shoe store",
	}

	lowerBodyTerms = []string{
		"pants", "trousers", "jeans", "jean", "blue jean", "denim", "shorts",
		"skirt", "cargo", "chinos", "joggers", "leggings",
	}

	upperBodyTerms = []string{
		"t-shirt", "tee", "shirt", "top", "hoodie", "sweatshirt", "sweater",
		"jacket", "coat", "kurta", "blouse", "polo", "tank", "cardigan",
	}
)
