package model

// SourceKind says how a source's payload is delivered.
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceURL  SourceKind = "url"
)

// Source is one file or URL registered against a pending report.
type Source struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Kind       SourceKind   `json:"kind"`
	Path       string       `json:"path,omitempty"` // file sources
	URL        string       `json:"url,omitempty"`  // url sources
	FilterExpr string       `json:"filter_expr,omitempty"`
	Filter     SourceFilter `json:"filter"`
}

// Range is an inclusive numeric range.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the range, bounds included.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// SourceFilter is the parsed form of a source's free-text filter expression.
// Field names match what POST /generate-report expects in source_filters.
type SourceFilter struct {
	PriceRange *Range `json:"priceRange,omitempty"`
	YearRange  *Range `json:"yearRange,omitempty"`
	Model      string `json:"model,omitempty"`
	Company    string `json:"company,omitempty"`
	Location   string `json:"location,omitempty"`
}

// IsZero reports whether the filter restricts nothing.
func (f SourceFilter) IsZero() bool {
	return f.PriceRange == nil && f.YearRange == nil && f.Model == "" && f.Company == "" && f.Location == ""
}

// Match applies the filter to a single fact.
func (f SourceFilter) Match(s SaleFact) bool {
	if f.PriceRange != nil && !f.PriceRange.Contains(s.Price) {
		return false
	}
	if f.YearRange != nil && !f.YearRange.Contains(float64(s.ManufacturingYear)) {
		return false
	}
	if f.Model != "" && s.Model != f.Model {
		return false
	}
	if f.Company != "" && s.Company != f.Company {
		return false
	}
	if f.Location != "" && s.Location != f.Location {
		return false
	}
	return true
}
