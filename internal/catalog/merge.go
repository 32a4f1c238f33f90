package catalog

import "strings"

// Merge attaches display names and the latest purchase rate to each product.
// It is pure: inputs are not modified and output order matches input order.
func Merge(products []Product, names Names, rates map[string]float64) []EnrichedProduct {
	out := make([]EnrichedProduct, 0, len(products))
	for _, p := range products {
		rate, ok := rates[p.Key()]
		if !ok {
			rate = p.Rate
		}
		out = append(out, EnrichedProduct{
			Product:            p,
			CategoryName:       nameOr(names.Categories, p.Category),
			CompanyName:        nameOr(names.Companies, p.Company),
			SubcategoryNames:   joinNames(names.Subcategories, p.Subcategory),
			LatestPurchaseRate: rate,
		})
	}
	return out
}

func nameOr(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}

func joinNames(names map[string]string, joined string) string {
	ids := SplitIDs(joined)
	resolved := make([]string, 0, len(ids))
	for _, id := range ids {
		if name, ok := names[id]; ok {
			resolved = append(resolved, name)
		}
	}
	return strings.Join(resolved, ", ")
}
