package model

// Dimension names one filter control.
type Dimension string

const (
	DimCompany  Dimension = "company"
	DimModel    Dimension = "model"
	DimYear     Dimension = "year"
	DimMonth    Dimension = "month"
	DimMinCount Dimension = "minCount"
	DimMinTotal Dimension = "minTotal"
)

// EmptyPolicy decides what a present but empty allow-list means.
type EmptyPolicy int

const (
	// EmptyShowsNothing hides every row when nothing is selected.
	EmptyShowsNothing EmptyPolicy = iota
	// EmptyShowsAll treats an empty selection as no restriction.
	EmptyShowsAll
)

// ParseEmptyPolicy maps a config string to a policy; unknown strings give
// EmptyShowsNothing.
func ParseEmptyPolicy(s string) EmptyPolicy {
	if s == "all" || s == "show_all" {
		return EmptyShowsAll
	}
	return EmptyShowsNothing
}

// FilterState is the set of active visibility predicates for one chart. A
// dimension that was never set does not restrict anything. FilterState is a
// value: the With* methods return modified copies.
type FilterState struct {
	allow  map[Dimension]map[string]struct{}
	bounds map[Dimension]float64
	policy map[Dimension]EmptyPolicy
}

func (s FilterState) clone() FilterState {
	out := FilterState{
		allow:  make(map[Dimension]map[string]struct{}, len(s.allow)),
		bounds: make(map[Dimension]float64, len(s.bounds)),
		policy: make(map[Dimension]EmptyPolicy, len(s.policy)),
	}
	for d, set := range s.allow {
		cp := make(map[string]struct{}, len(set))
		for v := range set {
			cp[v] = struct{}{}
		}
		out.allow[d] = cp
	}
	for d, b := range s.bounds {
		out.bounds[d] = b
	}
	for d, p := range s.policy {
		out.policy[d] = p
	}
	return out
}

// WithAllow replaces the allow-list of dim. Passing no values records an
// explicitly empty selection.
func (s FilterState) WithAllow(dim Dimension, values ...string) FilterState {
	out := s.clone()
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	out.allow[dim] = set
	return out
}

// WithBound sets an inclusive numeric lower bound on dim.
func (s FilterState) WithBound(dim Dimension, min float64) FilterState {
	out := s.clone()
	out.bounds[dim] = min
	return out
}

// WithPolicy sets the empty-selection policy of dim.
func (s FilterState) WithPolicy(dim Dimension, p EmptyPolicy) FilterState {
	out := s.clone()
	out.policy[dim] = p
	return out
}

// Allowed returns the allow-list of dim and whether one is set.
func (s FilterState) Allowed(dim Dimension) (map[string]struct{}, bool) {
	set, ok := s.allow[dim]
	return set, ok
}

// Bound returns the lower bound of dim and whether one is set.
func (s FilterState) Bound(dim Dimension) (float64, bool) {
	b, ok := s.bounds[dim]
	return b, ok
}

// Policy returns the empty-selection policy of dim.
func (s FilterState) Policy(dim Dimension) EmptyPolicy {
	return s.policy[dim]
}
