package entity

// Item is the thing being raffled. Catalog management lives in another
// service; this row only anchors foreign keys and credit scopes.
type Item struct {
	Base

	Name      string
	CreatedBy string
}
