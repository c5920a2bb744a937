package filter

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/gorilla/schema"

	"github.com/stenmark/stone-finder/pkg/types"
)

var decoder = schema.NewDecoder()

func init() {
	decoder.IgnoreUnknownKeys(true)
}

// scalarParams is the schema-decoded part of the query string. Everything is
// kept as strings so a malformed value can be dropped per key instead of
// failing the whole decode.
type scalarParams struct {
	Query     string `schema:"query"`
	PriceMin  string `schema:"priceMin"`
	PriceMax  string `schema:"priceMax"`
	Currency  string `schema:"currency"`
	WeightMin string `schema:"weightMin"`
	WeightMax string `schema:"weightMax"`
}

// Decode rebuilds filter state from query parameters. It never fails: unknown
// keys are ignored, malformed values drop their own key and nothing else.
// Categorical keys accept comma-joined values and repeated occurrences.
func Decode(query url.Values) *types.Filters {
	f := types.NewFilters()

	scalars := scalarParams{}
	// Unknown keys are ignored; a decode error cannot happen on plain strings.
	_ = decoder.Decode(&scalars, query)

	if scalars.Query != "" {
		f = f.WithQuery(scalars.Query)
	}

	for _, dim := range types.KeyDimensions {
		values := make([]string, 0)
		for _, raw := range query[string(dim)] {
			values = append(values, strings.Split(raw, ",")...)
		}
		if len(values) > 0 {
			f = f.WithTerms(dim, values...)
		}
	}

	if scalars.PriceMin != "" || scalars.PriceMax != "" {
		minPrice, minErr := strconv.ParseInt(scalars.PriceMin, 10, 64)
		maxPrice, maxErr := strconv.ParseInt(scalars.PriceMax, 10, 64)
		if minErr == nil && maxErr == nil && minPrice >= 0 && maxPrice >= minPrice {
			f = f.WithPrice(&types.PriceRange{Min: minPrice, Max: maxPrice, Currency: scalars.Currency})
		}
	}

	if scalars.WeightMin != "" || scalars.WeightMax != "" {
		minWeight, minErr := strconv.ParseFloat(scalars.WeightMin, 64)
		maxWeight, maxErr := strconv.ParseFloat(scalars.WeightMax, 64)
		if minErr == nil && maxErr == nil && minWeight >= 0 && maxWeight >= minWeight {
			f = f.WithWeight(&types.WeightRange{Min: minWeight, Max: maxWeight})
		}
	}

	for _, flag := range types.AllFlags {
		raw := query.Get(string(flag))
		if raw == "" {
			continue
		}
		on, err := strconv.ParseBool(raw)
		if err != nil {
			continue
		}
		if on {
			f = f.WithFlag(flag)
		}
	}

	return f
}

// DecodeQuery is Decode over a raw query string. A partially unparsable
// string still yields the keys that did parse.
func DecodeQuery(qs string) *types.Filters {
	values, _ := url.ParseQuery(qs)
	return Decode(values)
}

// Encode renders filter state as a query string. Unconstrained fields are
// omitted entirely, keys and values come out in a deterministic order, and
// Decode(Encode(f)) reproduces f. Invalid state is refused.
func Encode(f *types.Filters) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	values := url.Values{}
	if f.IsEmpty() {
		return "", nil
	}
	if f.Query != "" {
		values.Set("query", f.Query)
	}
	for _, dim := range types.KeyDimensions {
		if selected := f.TermValues(dim); len(selected) > 0 {
			values.Set(string(dim), strings.Join(selected, ","))
		}
	}
	if f.Price != nil {
		values.Set("priceMin", strconv.FormatInt(f.Price.Min, 10))
		values.Set("priceMax", strconv.FormatInt(f.Price.Max, 10))
		if f.Price.Currency != "" && f.Price.Currency != types.DefaultCurrency {
			values.Set("currency", f.Price.Currency)
		}
	}
	if f.Weight != nil {
		values.Set("weightMin", strconv.FormatFloat(f.Weight.Min, 'f', -1, 64))
		values.Set("weightMax", strconv.FormatFloat(f.Weight.Max, 'f', -1, 64))
	}
	for _, flag := range f.Flags {
		values.Set(string(flag), "true")
	}
	return values.Encode(), nil
}

// SearchRequest is one listing fetch: filter state plus paging and sort.
type SearchRequest struct {
	Filters  *types.Filters `json:"filters" schema:"-"`
	Sort     string         `json:"sort" schema:"sort,default:popular"`
	Page     int            `json:"page" schema:"page,default:1"`
	PageSize int            `json:"pageSize" schema:"size,default:40"`
}

func clamp[T int | float64](value, min, max T) T {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func (s *SearchRequest) Sanitize() {
	s.Page = clamp(s.Page, 1, 10000)
	s.PageSize = clamp(s.PageSize, 1, 200)
	if s.Sort == "" {
		s.Sort = "popular"
	}
	if s.Filters == nil {
		s.Filters = types.NewFilters()
	}
}

// FromRequest decodes a listing request: query parameters on GET, a JSON
// body otherwise. Malformed paging parameters fall back to their defaults.
func FromRequest(r *http.Request) (*SearchRequest, error) {
	sr := &SearchRequest{}
	if r.Method == http.MethodGet {
		query := r.URL.Query()
		// A bad page or size value keeps its default; the filters decode on
		// their own terms.
		_ = decoder.Decode(sr, query)
		sr.Filters = Decode(query)
		sr.Sanitize()
		return sr, nil
	}
	if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(sr); err != nil {
		return nil, err
	}
	// Body filters arrive in caller order, the canonical form is what Key
	// and Equal work on.
	sr.Filters = sr.Filters.Canonicalize()
	sr.Sanitize()
	return sr, nil
}
