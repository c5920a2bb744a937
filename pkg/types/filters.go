package types

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

type PriceRange struct {
	Min      int64  `json:"min"`
	Max      int64  `json:"max"`
	Currency string `json:"currency,omitempty"`
}

type WeightRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Filters is the complete filter state of one storefront list view: free
// text, categorical selections, price and weight ranges and require-true
// flags. The zero value matches the whole catalog.
//
// Filters behaves as a value: every mutating helper returns a modified copy
// and a value already handed out never changes underneath its holder. Values
// are kept canonical (sorted, deduplicated, empty selections removed) so
// Equal and Key are insensitive to insertion order.
type Filters struct {
	Query  string                 `json:"query,omitempty"`
	Terms  map[Dimension][]string `json:"terms,omitempty"`
	Price  *PriceRange            `json:"price,omitempty"`
	Weight *WeightRange           `json:"weight,omitempty"`
	Flags  []Flag                 `json:"flags,omitempty"`
}

func NewFilters() *Filters {
	return &Filters{}
}

func (f *Filters) clone() *Filters {
	c := &Filters{Query: f.Query}
	if len(f.Terms) > 0 {
		c.Terms = make(map[Dimension][]string, len(f.Terms))
		for dim, values := range f.Terms {
			c.Terms[dim] = slices.Clone(values)
		}
	}
	if f.Price != nil {
		p := *f.Price
		c.Price = &p
	}
	if f.Weight != nil {
		w := *f.Weight
		c.Weight = &w
	}
	if len(f.Flags) > 0 {
		c.Flags = slices.Clone(f.Flags)
	}
	return c
}

func normalizeValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (f *Filters) WithQuery(query string) *Filters {
	c := f.clone()
	c.Query = strings.TrimSpace(query)
	return c
}

// WithTerms replaces the selection of one dimension. An empty value list
// removes the dimension entirely.
func (f *Filters) WithTerms(dim Dimension, values ...string) *Filters {
	c := f.clone()
	normalized := normalizeValues(values)
	if len(normalized) == 0 {
		delete(c.Terms, dim)
		if len(c.Terms) == 0 {
			c.Terms = nil
		}
		return c
	}
	if c.Terms == nil {
		c.Terms = make(map[Dimension][]string, 1)
	}
	c.Terms[dim] = normalized
	return c
}

func (f *Filters) WithTerm(dim Dimension, value string) *Filters {
	values := append(slices.Clone(f.TermValues(dim)), value)
	return f.WithTerms(dim, values...)
}

func (f *Filters) WithoutTerm(dim Dimension, value string) *Filters {
	kept := make([]string, 0)
	for _, v := range f.TermValues(dim) {
		if v != value {
			kept = append(kept, v)
		}
	}
	return f.WithTerms(dim, kept...)
}

// ToggleTerm adds the value when absent and removes it when present, the
// storefront checkbox gesture.
func (f *Filters) ToggleTerm(dim Dimension, value string) *Filters {
	if f.HasTerm(dim, value) {
		return f.WithoutTerm(dim, value)
	}
	return f.WithTerm(dim, value)
}

func (f *Filters) WithPrice(r *PriceRange) *Filters {
	c := f.clone()
	if r == nil {
		c.Price = nil
		return c
	}
	p := *r
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	c.Price = &p
	return c
}

func (f *Filters) WithWeight(r *WeightRange) *Filters {
	c := f.clone()
	if r == nil {
		c.Weight = nil
		return c
	}
	w := *r
	c.Weight = &w
	return c
}

func (f *Filters) WithFlag(flag Flag) *Filters {
	c := f.clone()
	if slices.Contains(c.Flags, flag) {
		return c
	}
	c.Flags = append(c.Flags, flag)
	slices.Sort(c.Flags)
	return c
}

// WithoutFlag drops one flag constraint. This is also the self-exclusion
// used when counting the flag's own facet.
func (f *Filters) WithoutFlag(flag Flag) *Filters {
	c := f.clone()
	kept := make([]Flag, 0, len(c.Flags))
	for _, fl := range c.Flags {
		if fl != flag {
			kept = append(kept, fl)
		}
	}
	if len(kept) == 0 {
		c.Flags = nil
	} else {
		c.Flags = kept
	}
	return c
}

// WithOut returns a copy with one dimension's own constraint removed, so a
// facet can be counted as if only that dimension were released.
func (f *Filters) WithOut(dim Dimension) *Filters {
	c := f.clone()
	switch dim {
	case DimPrice:
		c.Price = nil
	case DimWeight:
		c.Weight = nil
	default:
		delete(c.Terms, dim)
		if len(c.Terms) == 0 {
			c.Terms = nil
		}
	}
	return c
}

func (f *Filters) Reset() *Filters {
	return NewFilters()
}

func (f *Filters) HasTerm(dim Dimension, value string) bool {
	return slices.Contains(f.TermValues(dim), value)
}

func (f *Filters) TermValues(dim Dimension) []string {
	if f == nil || f.Terms == nil {
		return nil
	}
	return f.Terms[dim]
}

func (f *Filters) HasFlag(flag Flag) bool {
	return f != nil && slices.Contains(f.Flags, flag)
}

func (f *Filters) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.Query == "" && len(f.Terms) == 0 && f.Price == nil && f.Weight == nil && len(f.Flags) == 0
}

// ActiveCount is the number of constrained dimensions, for the storefront
// "n active filters" chip.
func (f *Filters) ActiveCount() int {
	if f == nil {
		return 0
	}
	count := len(f.Terms) + len(f.Flags)
	if f.Query != "" {
		count++
	}
	if f.Price != nil {
		count++
	}
	if f.Weight != nil {
		count++
	}
	return count
}

// Key renders the canonical form, stable across insertion order. It doubles
// as the response cache key.
func (f *Filters) Key() string {
	if f.IsEmpty() {
		return "*"
	}
	var b strings.Builder
	if f.Query != "" {
		b.WriteString("q=")
		b.WriteString(f.Query)
		b.WriteByte(';')
	}
	for _, dim := range KeyDimensions {
		if values := f.Terms[dim]; len(values) > 0 {
			b.WriteString(string(dim))
			b.WriteByte('=')
			b.WriteString(strings.Join(values, ","))
			b.WriteByte(';')
		}
	}
	if f.Price != nil {
		fmt.Fprintf(&b, "price=%d-%d:%s;", f.Price.Min, f.Price.Max, f.Price.Currency)
	}
	if f.Weight != nil {
		b.WriteString("weight=")
		b.WriteString(strconv.FormatFloat(f.Weight.Min, 'f', -1, 64))
		b.WriteByte('-')
		b.WriteString(strconv.FormatFloat(f.Weight.Max, 'f', -1, 64))
		b.WriteByte(';')
	}
	for _, flag := range f.Flags {
		b.WriteByte('+')
		b.WriteString(string(flag))
		b.WriteByte(';')
	}
	return b.String()
}

// Equal compares canonical forms, so structurally equal filters compare
// equal no matter how they were assembled.
func (f *Filters) Equal(other *Filters) bool {
	return f.Key() == other.Key()
}

// Canonicalize rebuilds the filter through the normalizing helpers. Filters
// decoded from a request body arrive in whatever shape the caller sent;
// passing them through here restores the sorted, deduplicated form that Key
// and Equal rely on.
func (f *Filters) Canonicalize() *Filters {
	if f == nil {
		return NewFilters()
	}
	c := NewFilters().WithQuery(f.Query)
	for dim, values := range f.Terms {
		c = c.WithTerms(dim, values...)
	}
	c = c.WithPrice(f.Price).WithWeight(f.Weight)
	for _, flag := range f.Flags {
		c = c.WithFlag(flag)
	}
	return c
}

func (f *Filters) Validate() error {
	if f == nil {
		return nil
	}
	if f.Price != nil {
		if f.Price.Min < 0 || f.Price.Max < f.Price.Min {
			return fmt.Errorf("invalid price range %d-%d", f.Price.Min, f.Price.Max)
		}
	}
	if f.Weight != nil {
		if f.Weight.Min < 0 || f.Weight.Max < f.Weight.Min {
			return fmt.Errorf("invalid weight range %v-%v", f.Weight.Min, f.Weight.Max)
		}
	}
	for dim := range f.Terms {
		if !slices.Contains(KeyDimensions, dim) {
			return fmt.Errorf("unknown dimension %q", dim)
		}
	}
	for _, flag := range f.Flags {
		if !slices.Contains(AllFlags, flag) {
			return fmt.Errorf("unknown flag %q", flag)
		}
	}
	return nil
}
