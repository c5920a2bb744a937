package types

// Dimension names one filterable property of a stone.
type Dimension string

const (
	DimType    Dimension = "type"
	DimColor   Dimension = "color"
	DimCut     Dimension = "cut"
	DimClarity Dimension = "clarity"
	DimOrigin  Dimension = "origin"
	DimPrice   Dimension = "price"
	DimWeight  Dimension = "weight"
)

// KeyDimensions are the categorical dimensions in display order.
var KeyDimensions = []Dimension{DimType, DimColor, DimCut, DimClarity, DimOrigin}

// Flag is a boolean filter, require-true when present.
type Flag string

const (
	FlagInStock          Flag = "inStock"
	FlagHasImages        Flag = "hasImages"
	FlagHasCertification Flag = "hasCertification"
	FlagHasAnalysis      Flag = "hasAnalysis"
)

var AllFlags = []Flag{FlagInStock, FlagHasImages, FlagHasCertification, FlagHasAnalysis}

const DefaultCurrency = "USD"

// clarityOrder ranks grades best to worst. Facet values for clarity are
// presented in this order, never alphabetically.
var clarityOrder = map[string]int{
	"FL":   0,
	"IF":   1,
	"VVS1": 2,
	"VVS2": 3,
	"VS1":  4,
	"VS2":  5,
	"SI1":  6,
	"SI2":  7,
	"I1":   8,
	"I2":   9,
	"I3":   10,
}

// ClarityOrdinal returns the rank of a clarity grade. Unknown grades sort
// after all known ones.
func ClarityOrdinal(value string) int {
	if v, ok := clarityOrder[value]; ok {
		return v
	}
	return len(clarityOrder)
}
