package garment

import "strings"

// Category is one of the closed set of garment-region slugs. The slugs
// double as the wire values sent to the try-on provider.
type Category string

const (
	CategoryUpperBody Category = "upper_body"
	CategoryLowerBody Category = "lower_body"
	CategoryDresses   Category = "dresses"
	CategoryFootwear  Category = "footwear"
	CategoryHeadwear  Category = "headwear"
)

// Categories returns the closed set in display order.
func Categories() []Category {
	return []Category{
		CategoryUpperBody,
		CategoryLowerBody,
		CategoryDresses,
		CategoryFootwear,
		CategoryHeadwear,
	}
}

// categoryRules is evaluated top to bottom; the first rule whose term set
// intersects the tag set wins. Dresses and headwear are unambiguous
// single-category signals and override co-occurring generic terms;
// footwear, lower body, and upper body follow in decreasing specificity.
var categoryRules = []struct {
	category Category
	terms    []string
}{
	{CategoryDresses, dressTerms},
	{CategoryHeadwear, headwearTerms},
	{CategoryFootwear, footwearTerms},
	{CategoryLowerBody, lowerBodyTerms},
	{CategoryUpperBody, upperBodyTerms},
}

// Infer maps a tag set onto a category. It accepts raw or canonical tags
// and is total: an empty or unrecognized set falls back to upper_body.
func Infer(tags []string) Category {
	present := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		present[Fold(t)] = struct{}{}
	}
	for _, rule := range categoryRules {
		for _, term := range rule.terms {
			if _, ok := present[term]; ok {
				return rule.category
			}
		}
	}
	return CategoryUpperBody
}

// ParseCategory resolves a free-text category answer from an external
// classifier into one of the closed slugs. Case, surrounding punctuation,
// and space/hyphen/underscore separators are all interchangeable, and the
// common aliases ("dress", "head wear", "head gear") resolve too. The
// second return is false when the answer approximates nothing in the set,
// in which case callers should fall back to Infer.
func ParseCategory(s string) (Category, bool) {
	folded := Fold(strings.Trim(s, " \t\r\n.,:;!\"'"))
	folded = strings.NewReplacer(" ", "_", "-", "_").Replace(folded)
	switch folded {
	case "upper_body", "upperbody", "upper":
		return CategoryUpperBody, true
	case "lower_body", "lowerbody", "lower":
		return CategoryLowerBody, true
	case "dresses", "dress", "gown":
		return CategoryDresses, true
	case "footwear", "foot_wear", "shoes":
		return CategoryFootwear, true
	case "headwear", "head_wear", "head_gear", "headgear":
		return CategoryHeadwear, true
	}
	return "", false
}

// supportedTryOnCategories is the base provider capability set. Footwear
// and headwear previews still render; only the compositing stage is gated.
var supportedTryOnCategories = map[Category]struct{}{
	CategoryUpperBody: {},
	CategoryLowerBody: {},
	CategoryDresses:   {},
}

// IsTryOnSupported reports whether the compositing stage may be attempted
// for the category.
func IsTryOnSupported(c Category) bool {
	_, ok := supportedTryOnCategories[c]
	return ok
}
