package types

// ItemHandler is implemented by everything that keeps per-item state, the
// item index first of all. Storage feeds snapshots through it on boot.
type ItemHandler interface {
	HandleItem(item Item) error
	HandleItems(items []Item) error
	DeleteItem(id ItemId) error
}
