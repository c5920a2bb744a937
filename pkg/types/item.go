package types

import "io"

type ItemId uint32

// Item is what the indexes and the storefront handlers need to know about a
// catalog entry. The concrete stone type lives in pkg/index.
type Item interface {
	GetId() ItemId
	GetSku() string
	GetTitle() string
	GetPrice() int
	GetWeight() float64
	HasStock() bool
	IsDeleted() bool
	GetStringField(dim Dimension) (string, bool)
	GetNumberField(dim Dimension) (float64, bool)
	GetFlag(flag Flag) bool
	GetCreated() int64
	GetLastUpdate() int64
	GetTerms() []string
	Write(w io.Writer) (int, error)
}
