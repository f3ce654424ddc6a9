package crawler

// Merge concatenates per-category lists, keeping only the first record seen
// for each ID. Order follows the input order.
func Merge(lists ...[]Product) []Product {
	seen := make(map[string]struct{})
	var merged []Product
	for _, list := range lists {
		for _, p := range list {
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			merged = append(merged, p)
		}
	}
	return merged
}
