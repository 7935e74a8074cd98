package domain

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Query parameter names understood by the registry's object list endpoint.
const (
	ParamSearch             = "search"
	ParamRegion             = "region"
	ParamResourceType       = "resource_type"
	ParamWaterType          = "water_type"
	ParamFauna              = "fauna"
	ParamPassportDateAfter  = "passport_date_after"
	ParamPassportDateBefore = "passport_date_before"
	ParamTechnicalCondition = "technical_condition"
)

// Criteria is a set of optional constraints, ANDed together.
// A nil pointer or empty search term means "no constraint".
type Criteria struct {
	SearchTerm         string
	Region             *int64
	ResourceType       *int64
	WaterType          *int64
	Fauna              *bool
	PassportDateFrom   *time.Time
	PassportDateTo     *time.Time
	TechnicalCondition *int
}

// Empty reports whether no constraint is set.
func (c Criteria) Empty() bool {
	return c == Criteria{}
}

// Predicate is a single filter test over a water object.
type Predicate func(WaterObject) bool

// All returns the conjunction of preds. An empty list matches everything.
func All(preds ...Predicate) Predicate {
	return func(o WaterObject) bool {
		for _, p := range preds {
			if !p(o) {
				return false
			}
		}
		return true
	}
}

// Predicate returns the conjunction of every constraint set in c.
func (c Criteria) Predicate() Predicate {
	var preds []Predicate

	if term := strings.TrimSpace(c.SearchTerm); term != "" {
		folded := fold(term)
		preds = append(preds, func(o WaterObject) bool {
			return strings.Contains(fold(o.Name), folded)
		})
	}
	if c.Region != nil {
		want := *c.Region
		preds = append(preds, func(o WaterObject) bool { return idEquals(o.RegionID, want) })
	}
	if c.ResourceType != nil {
		want := *c.ResourceType
		preds = append(preds, func(o WaterObject) bool { return idEquals(o.ResourceTypeID, want) })
	}
	if c.WaterType != nil {
		want := *c.WaterType
		preds = append(preds, func(o WaterObject) bool { return idEquals(o.WaterTypeID, want) })
	}
	if c.Fauna != nil {
		want := *c.Fauna
		preds = append(preds, func(o WaterObject) bool { return o.Fauna == want })
	}
	if c.PassportDateFrom != nil {
		from := truncateDay(*c.PassportDateFrom)
		preds = append(preds, func(o WaterObject) bool {
			return !o.PassportDate.IsZero() && !truncateDay(o.PassportDate).Before(from)
		})
	}
	if c.PassportDateTo != nil {
		to := truncateDay(*c.PassportDateTo)
		preds = append(preds, func(o WaterObject) bool {
			return !o.PassportDate.IsZero() && !truncateDay(o.PassportDate).After(to)
		})
	}
	if c.TechnicalCondition != nil {
		want := *c.TechnicalCondition
		preds = append(preds, func(o WaterObject) bool { return o.TechnicalCondition == want })
	}

	return All(preds...)
}

// Matches reports whether o satisfies every constraint in c.
func (c Criteria) Matches(o WaterObject) bool {
	return c.Predicate()(o)
}

// Filter returns the objects matching c, preserving order.
func Filter(objects []WaterObject, c Criteria) []WaterObject {
	return FilterBy(objects, c.Predicate())
}

// FilterBy returns the objects accepted by pred, preserving order.
func FilterBy(objects []WaterObject, pred Predicate) []WaterObject {
	out := make([]WaterObject, 0, len(objects))
	for _, o := range objects {
		if pred(o) {
			out = append(out, o)
		}
	}
	return out
}

// Apply filters then sorts, returning a new slice.
func Apply(objects []WaterObject, c Criteria, spec SortSpec) []WaterObject {
	return Sort(Filter(objects, c), spec)
}

// QueryParams serializes c for server-side filtering. Unset fields are
// omitted and the search term is trimmed as Predicate trims it.
func (c Criteria) QueryParams() url.Values {
	v := url.Values{}
	if term := strings.TrimSpace(c.SearchTerm); term != "" {
		v.Set(ParamSearch, term)
	}
	if c.Region != nil {
		v.Set(ParamRegion, strconv.FormatInt(*c.Region, 10))
	}
	if c.ResourceType != nil {
		v.Set(ParamResourceType, strconv.FormatInt(*c.ResourceType, 10))
	}
	if c.WaterType != nil {
		v.Set(ParamWaterType, strconv.FormatInt(*c.WaterType, 10))
	}
	if c.Fauna != nil {
		v.Set(ParamFauna, strconv.FormatBool(*c.Fauna))
	}
	if c.PassportDateFrom != nil {
		v.Set(ParamPassportDateAfter, c.PassportDateFrom.Format(PassportDateLayout))
	}
	if c.PassportDateTo != nil {
		v.Set(ParamPassportDateBefore, c.PassportDateTo.Format(PassportDateLayout))
	}
	if c.TechnicalCondition != nil {
		v.Set(ParamTechnicalCondition, strconv.Itoa(*c.TechnicalCondition))
	}
	return v
}

// ParseCriteria is the inverse of QueryParams. Empty values are treated as
// unset; malformed values are reported with the parameter name.
func ParseCriteria(v url.Values) (Criteria, error) {
	var c Criteria
	var err error

	c.SearchTerm = strings.TrimSpace(v.Get(ParamSearch))
	if c.Region, err = parseIDParam(v, ParamRegion); err != nil {
		return Criteria{}, err
	}
	if c.ResourceType, err = parseIDParam(v, ParamResourceType); err != nil {
		return Criteria{}, err
	}
	if c.WaterType, err = parseIDParam(v, ParamWaterType); err != nil {
		return Criteria{}, err
	}
	if s := v.Get(ParamFauna); s != "" {
		b, perr := strconv.ParseBool(s)
		if perr != nil {
			return Criteria{}, fmt.Errorf("invalid %s %q", ParamFauna, s)
		}
		c.Fauna = &b
	}
	if c.PassportDateFrom, err = parseDateParam(v, ParamPassportDateAfter); err != nil {
		return Criteria{}, err
	}
	if c.PassportDateTo, err = parseDateParam(v, ParamPassportDateBefore); err != nil {
		return Criteria{}, err
	}
	if s := v.Get(ParamTechnicalCondition); s != "" {
		n, perr := strconv.Atoi(s)
		if perr != nil || n < 1 || n > 5 {
			return Criteria{}, fmt.Errorf("invalid %s %q", ParamTechnicalCondition, s)
		}
		c.TechnicalCondition = &n
	}
	return c, nil
}

func parseIDParam(v url.Values, name string) (*int64, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return &id, nil
}

func parseDateParam(v url.Values, name string) (*time.Time, error) {
	s := v.Get(name)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(PassportDateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", name, s)
	}
	return &t, nil
}

func idEquals(id *int64, want int64) bool {
	return id != nil && *id == want
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// fold returns the Unicode caseless form of s.
func fold(s string) string {
	return cases.Fold().String(s)
}

// lower returns the lower-case form of s used for string sort keys.
func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}
