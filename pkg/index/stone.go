package index

import (
	"io"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/stenmark/stone-finder/pkg/types"
)

type Certification struct {
	Lab    string `json:"lab,omitempty"`
	Number string `json:"number,omitempty"`
}

// Stone is the concrete catalog entry. Prices are minor units in the listing
// currency, weight is carats.
type Stone struct {
	Id         types.ItemId `json:"id"`
	LastUpdate int64        `json:"lastUpdate,omitempty"`
	Created    int64        `json:"created,omitempty"`

	Sku         string `json:"sku"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	StoneType string `json:"type"`
	Color     string `json:"color,omitempty"`
	Cut       string `json:"cut,omitempty"`
	Clarity   string `json:"clarity,omitempty"`
	Origin    string `json:"origin,omitempty"`

	Price    int     `json:"price"`
	Currency string  `json:"currency,omitempty"`
	Weight   float64 `json:"weight,omitempty"`
	Stock    int     `json:"stock"`

	Images        []string       `json:"images,omitempty"`
	Certification *Certification `json:"certification,omitempty"`
	AnalysisId    string         `json:"analysisId,omitempty"`

	Deleted bool `json:"deleted,omitempty"`
}

func (s *Stone) GetId() types.ItemId {
	return s.Id
}

func (s *Stone) GetSku() string {
	return s.Sku
}

func (s *Stone) GetTitle() string {
	return s.Title
}

func (s *Stone) GetPrice() int {
	return s.Price
}

func (s *Stone) GetWeight() float64 {
	return s.Weight
}

func (s *Stone) HasStock() bool {
	return s.Stock > 0
}

// IsDeleted also covers unsellable listings, a stone without a price never
// enters the indexes.
func (s *Stone) IsDeleted() bool {
	if s.Deleted {
		return true
	}
	return s.IsSoftDeleted()
}

func (s *Stone) IsSoftDeleted() bool {
	return s.Price <= 0
}

func (s *Stone) GetStringField(dim types.Dimension) (string, bool) {
	var v string
	switch dim {
	case types.DimType:
		v = s.StoneType
	case types.DimColor:
		v = s.Color
	case types.DimCut:
		v = s.Cut
	case types.DimClarity:
		v = s.Clarity
	case types.DimOrigin:
		v = s.Origin
	default:
		return "", false
	}
	if v == "" {
		return "", false
	}
	return v, true
}

func (s *Stone) GetNumberField(dim types.Dimension) (float64, bool) {
	switch dim {
	case types.DimPrice:
		return float64(s.Price), true
	case types.DimWeight:
		if s.Weight > 0 {
			return s.Weight, true
		}
	}
	return 0, false
}

func (s *Stone) GetFlag(flag types.Flag) bool {
	switch flag {
	case types.FlagInStock:
		return s.HasStock()
	case types.FlagHasImages:
		return len(s.Images) > 0
	case types.FlagHasCertification:
		return s.Certification != nil && s.Certification.Lab != ""
	case types.FlagHasAnalysis:
		return s.AnalysisId != ""
	}
	return false
}

func (s *Stone) GetCreated() int64 {
	return s.Created
}

func (s *Stone) GetLastUpdate() int64 {
	return s.LastUpdate
}

// GetTerms feeds the free text index. The title goes first so suggestions
// complete it before anything else.
func (s *Stone) GetTerms() []string {
	terms := make([]string, 0, 6)
	for _, t := range []string{s.Title, s.Sku, s.StoneType, s.Color, s.Origin} {
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func (s *Stone) ToString() string {
	return strings.Join(s.GetTerms(), " ")
}

func (s *Stone) Write(w io.Writer) (int, error) {
	bytes, err := sonic.Marshal(s)
	if err != nil {
		return 0, err
	}
	b, err := w.Write(bytes)
	if err != nil {
		return b, err
	}
	n, err := w.Write([]byte("\n"))
	return b + n, err
}
