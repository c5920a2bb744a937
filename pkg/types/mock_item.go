package types

import (
	"fmt"
	"io"
)

// MockItem is a hand-rolled catalog entry for tests.
type MockItem struct {
	Id         ItemId
	Sku        string
	Title      string
	Price      int
	Weight     float64
	Stock      int
	Deleted    bool
	Strings    map[Dimension]string
	Flags      map[Flag]bool
	Created    int64
	LastUpdate int64
	Terms      []string
}

func (m *MockItem) GetId() ItemId {
	return m.Id
}

func (m *MockItem) GetSku() string {
	return m.Sku
}

func (m *MockItem) GetTitle() string {
	return m.Title
}

func (m *MockItem) GetPrice() int {
	return m.Price
}

func (m *MockItem) GetWeight() float64 {
	return m.Weight
}

func (m *MockItem) HasStock() bool {
	return m.Stock > 0
}

func (m *MockItem) IsDeleted() bool {
	return m.Deleted
}

func (m *MockItem) GetStringField(dim Dimension) (string, bool) {
	v, ok := m.Strings[dim]
	return v, ok
}

func (m *MockItem) GetNumberField(dim Dimension) (float64, bool) {
	switch dim {
	case DimPrice:
		return float64(m.Price), true
	case DimWeight:
		return m.Weight, true
	}
	return 0, false
}

func (m *MockItem) GetFlag(flag Flag) bool {
	if v, ok := m.Flags[flag]; ok {
		return v
	}
	if flag == FlagInStock {
		return m.HasStock()
	}
	return false
}

func (m *MockItem) GetCreated() int64 {
	return m.Created
}

func (m *MockItem) GetLastUpdate() int64 {
	return m.LastUpdate
}

func (m *MockItem) GetTerms() []string {
	if m.Terms != nil {
		return m.Terms
	}
	return []string{m.Title, m.Sku}
}

func (m *MockItem) Write(w io.Writer) (int, error) {
	return fmt.Fprintf(w, `{"id":%d,"sku":%q}`, m.Id, m.Sku)
}
