package types

import (
	"testing"
)

func TestFiltersValueSemantics(t *testing.T) {
	base := NewFilters().WithTerm(DimColor, "blue")
	derived := base.WithTerm(DimColor, "green").WithFlag(FlagInStock)

	if len(base.TermValues(DimColor)) != 1 {
		t.Errorf("Expected base to stay untouched, got %v", base.TermValues(DimColor))
	}
	if len(derived.TermValues(DimColor)) != 2 || !derived.HasFlag(FlagInStock) {
		t.Errorf("Expected derived copy to carry both changes, got %v", derived)
	}
}

func TestFiltersEqualIgnoresInsertionOrder(t *testing.T) {
	a := NewFilters().
		WithTerm(DimColor, "blue").
		WithTerm(DimColor, "green").
		WithFlag(FlagHasImages).
		WithFlag(FlagInStock)
	b := NewFilters().
		WithFlag(FlagInStock).
		WithTerm(DimColor, "green").
		WithFlag(FlagHasImages).
		WithTerm(DimColor, "blue")

	if !a.Equal(b) {
		t.Errorf("Expected order-insensitive equality, keys %q vs %q", a.Key(), b.Key())
	}
}

func TestFiltersToggleTerm(t *testing.T) {
	f := NewFilters().ToggleTerm(DimCut, "oval")
	if !f.HasTerm(DimCut, "oval") {
		t.Errorf("Expected toggle to select oval")
	}
	f = f.ToggleTerm(DimCut, "oval")
	if !f.IsEmpty() {
		t.Errorf("Expected toggle to clear the selection entirely, got %q", f.Key())
	}
}

func TestFiltersWithOut(t *testing.T) {
	f := NewFilters().
		WithTerm(DimType, "sapphire").
		WithTerm(DimColor, "blue").
		WithPrice(&PriceRange{Min: 10000, Max: 50000})

	stripped := f.WithOut(DimColor)
	if len(stripped.TermValues(DimColor)) != 0 {
		t.Errorf("Expected color to be stripped")
	}
	if !stripped.HasTerm(DimType, "sapphire") || stripped.Price == nil {
		t.Errorf("Expected the other constraints to survive")
	}

	noPrice := f.WithOut(DimPrice)
	if noPrice.Price != nil {
		t.Errorf("Expected price to be stripped")
	}
	if !f.HasTerm(DimColor, "blue") || f.Price == nil {
		t.Errorf("Expected WithOut to leave the source untouched")
	}
}

func TestFiltersCurrencyDefaulted(t *testing.T) {
	f := NewFilters().WithPrice(&PriceRange{Min: 100, Max: 200})
	if f.Price.Currency != DefaultCurrency {
		t.Errorf("Expected default currency, got %q", f.Price.Currency)
	}
}

func TestFiltersEmptySelectionEqualsAbsent(t *testing.T) {
	f := NewFilters().WithTerms(DimOrigin, "  ", "")
	if !f.IsEmpty() {
		t.Errorf("Expected blank-only values to leave the filter empty, got %q", f.Key())
	}
	if !f.Equal(NewFilters()) {
		t.Errorf("Expected equality with a fresh filter")
	}
}

func TestFiltersActiveCount(t *testing.T) {
	f := NewFilters().
		WithQuery("ceylon").
		WithTerm(DimType, "sapphire").
		WithWeight(&WeightRange{Min: 1, Max: 3}).
		WithFlag(FlagHasCertification)

	if got := f.ActiveCount(); got != 4 {
		t.Errorf("Expected 4 active filters, got %d", got)
	}
	if got := NewFilters().ActiveCount(); got != 0 {
		t.Errorf("Expected 0 active filters, got %d", got)
	}
}

func TestFiltersCanonicalize(t *testing.T) {
	decoded := &Filters{
		Query: "  ceylon ",
		Terms: map[Dimension][]string{
			DimColor: {"blue", "", "blue", "green "},
		},
		Price: &PriceRange{Min: 100, Max: 200},
		Flags: []Flag{FlagInStock, FlagHasCertification, FlagInStock},
	}
	canonical := decoded.Canonicalize()

	built := NewFilters().
		WithQuery("ceylon").
		WithTerms(DimColor, "green", "blue").
		WithPrice(&PriceRange{Min: 100, Max: 200}).
		WithFlag(FlagHasCertification).
		WithFlag(FlagInStock)
	if !canonical.Equal(built) {
		t.Errorf("Expected %q but got %q", built.Key(), canonical.Key())
	}
	if decoded.Query != "  ceylon " {
		t.Errorf("Expected the source filter to stay untouched")
	}

	var nilFilters *Filters
	if !nilFilters.Canonicalize().IsEmpty() {
		t.Errorf("Expected nil to canonicalize to the empty filter")
	}
}

func TestFiltersValidate(t *testing.T) {
	bad := NewFilters().WithPrice(&PriceRange{Min: 500, Max: 100})
	if err := bad.Validate(); err == nil {
		t.Errorf("Expected inverted price range to be rejected")
	}
	bad = NewFilters().WithWeight(&WeightRange{Min: -1, Max: 2})
	if err := bad.Validate(); err == nil {
		t.Errorf("Expected negative weight to be rejected")
	}
	ok := NewFilters().WithTerm(DimClarity, "VS1")
	if err := ok.Validate(); err != nil {
		t.Errorf("Expected valid filter, got %v", err)
	}
}
