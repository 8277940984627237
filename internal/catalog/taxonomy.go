package catalog

import "strings"

// StyleAll is the style that disables style filtering.
const StyleAll = "all"

// Category is one main category of the catalog.
type Category struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	SubCategories []SubCategory `json:"sub_categories,omitempty"`
	Styles        []string      `json:"styles"`
}

type SubCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Taxonomy is shared by gold and silver.
var taxonomy = []Category{
	{ID: "chains", Name: "Chains", Styles: []string{StyleAll, "box", "cable", "rope", "fancy"}},
	{ID: "earrings", Name: "Earrings", Styles: []string{StyleAll, "stud", "hangings", "drop", "antique jhumka"}},
	{
		ID: "rings", Name: "Rings",
		SubCategories: []SubCategory{{ID: "men", Name: "Men"}, {ID: "women", Name: "Women"}},
		Styles:        []string{StyleAll, "single stone", "plain", "couple", "fancy"},
	},
	{ID: "haara", Name: "Haara", Styles: []string{StyleAll, "traditional", "temple", "modern"}},
	{ID: "necklace", Name: "Necklace", Styles: []string{StyleAll, "choker", "long", "temple", "designer"}},
	{
		ID: "bracelet", Name: "Bracelet",
		SubCategories: []SubCategory{{ID: "men", Name: "Men"}, {ID: "women", Name: "Women"}, {ID: "kids", Name: "Kids"}},
		Styles:        []string{StyleAll, "plain", "charm", "link", "fancy"},
	},
}

// Taxonomy returns a copy of the category tree.
func Taxonomy() []Category {
	out := make([]Category, len(taxonomy))
	for i, c := range taxonomy {
		c.SubCategories = append([]SubCategory(nil), c.SubCategories...)
		c.Styles = append([]string(nil), c.Styles...)
		out[i] = c
	}
	return out
}

func findCategory(id string) (Category, bool) {
	for _, c := range taxonomy {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// CheckPlacement verifies that main, sub and style form a valid combination.
// An empty sub is allowed only for categories without subcategories, and an
// empty style means StyleAll.
func CheckPlacement(main, sub, style string) map[string]string {
	problems := map[string]string{}
	cat, ok := findCategory(strings.ToLower(strings.TrimSpace(main)))
	if !ok {
		problems["main_category"] = "unknown category"
		return problems
	}
	sub = strings.ToLower(strings.TrimSpace(sub))
	if sub == "" {
		if len(cat.SubCategories) > 0 {
			problems["sub_category"] = "required for " + cat.ID
		}
	} else {
		found := false
		for _, s := range cat.SubCategories {
			if s.ID == sub {
				found = true
				break
			}
		}
		if !found {
			problems["sub_category"] = "not offered for " + cat.ID
		}
	}
	style = strings.ToLower(strings.TrimSpace(style))
	if style != "" {
		found := false
		for _, s := range cat.Styles {
			if s == style {
				found = true
				break
			}
		}
		if !found {
			problems["style"] = "not offered for " + cat.ID
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}
