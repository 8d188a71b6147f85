package models

// AssetType is the kind of trackable unit an asset registers.
type AssetType int

const (
	AssetRepository AssetType = iota
	AssetDockerImage
	AssetDomain
	AssetHost
	AssetCloud
)

// Asset is a remote registration of a trackable unit, linked to a product.
type Asset struct {
	ID        int64  `json:"id"`
	Value     string `json:"value"`
	ProductID int64  `json:"product"`
}

// Page is one page of a paginated list response. Next and Previous are page
// numbers; a non-nil Next means more pages are available.
type Page[T any] struct {
	Count    int  `json:"count"`
	Next     *int `json:"next"`
	Previous *int `json:"previous"`
	Results  []T  `json:"results"`
}

// HasNextPage reports whether the server signalled a following page.
func (p Page[T]) HasNextPage() bool {
	return p.Next != nil
}

// DistinctAssetValues returns asset values with duplicates removed, in first-seen order.
func DistinctAssetValues(assets []Asset) []string {
	seen := make(map[string]struct{}, len(assets))
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if _, ok := seen[a.Value]; ok {
			continue
		}
		seen[a.Value] = struct{}{}
		out = append(out, a.Value)
	}
	return out
}

// DistinctProductIDs returns product ids with duplicates removed, in first-seen order.
func DistinctProductIDs(assets []Asset) []int64 {
	seen := make(map[int64]struct{}, len(assets))
	out := make([]int64, 0, len(assets))
	for _, a := range assets {
		if _, ok := seen[a.ProductID]; ok {
			continue
		}
		seen[a.ProductID] = struct{}{}
		out = append(out, a.ProductID)
	}
	return out
}
