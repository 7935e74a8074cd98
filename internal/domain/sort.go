package domain

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// SortKey names a sortable WaterObject field.
type SortKey string

const (
	SortByID                 SortKey = "id"
	SortByName               SortKey = "name"
	SortByRegion             SortKey = "regionName"
	SortByResourceType       SortKey = "resourceTypeName"
	SortByWaterType          SortKey = "waterTypeName"
	SortByFauna              SortKey = "fauna"
	SortByPassportDate       SortKey = "passport_date"
	SortByTechnicalCondition SortKey = "technical_condition"
	SortByLatitude           SortKey = "latitude"
	SortByLongitude          SortKey = "longitude"

	// SortByPriority is synthetic: it orders by PriorityScore.
	SortByPriority SortKey = "priority"
)

var sortKeys = []SortKey{
	SortByID, SortByName, SortByRegion, SortByResourceType, SortByWaterType,
	SortByFauna, SortByPassportDate, SortByTechnicalCondition,
	SortByLatitude, SortByLongitude, SortByPriority,
}

// ParseSortKey validates a user-supplied sort key.
func ParseSortKey(s string) (SortKey, error) {
	k := SortKey(s)
	if slices.Contains(sortKeys, k) {
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// Direction is the sort order.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortSpec selects a single sort key and direction. A zero Key leaves the
// input order unchanged.
type SortSpec struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// DefaultSort is the initial ordering: most urgent first.
var DefaultSort = SortSpec{Key: SortByPriority, Direction: Desc}

// Toggle returns the spec after a user selects key: the same key flips the
// direction, a new key starts ascending.
func (s SortSpec) Toggle(key SortKey) SortSpec {
	if s.Key == key && s.Direction == Asc {
		return SortSpec{Key: key, Direction: Desc}
	}
	return SortSpec{Key: key, Direction: Asc}
}

// Sort returns a stably sorted copy of objects.
func Sort(objects []WaterObject, spec SortSpec) []WaterObject {
	out := slices.Clone(objects)
	if spec.Key == "" {
		return out
	}
	compare := comparator(spec.Key)
	slices.SortStableFunc(out, func(a, b WaterObject) int {
		c := compare(a, b)
		if spec.Direction == Desc {
			return -c
		}
		return c
	})
	return out
}

func comparator(key SortKey) func(a, b WaterObject) int {
	switch key {
	case SortByName:
		return byString(func(o WaterObject) string { return o.Name })
	case SortByRegion:
		return byString(func(o WaterObject) string { return o.RegionName })
	case SortByResourceType:
		return byString(func(o WaterObject) string { return o.ResourceTypeName })
	case SortByWaterType:
		return byString(func(o WaterObject) string { return o.WaterTypeName })
	case SortByFauna:
		return func(a, b WaterObject) int { return compareBool(a.Fauna, b.Fauna) }
	case SortByPassportDate:
		return func(a, b WaterObject) int { return a.PassportDate.Compare(b.PassportDate) }
	case SortByTechnicalCondition:
		return func(a, b WaterObject) int { return cmp.Compare(a.TechnicalCondition, b.TechnicalCondition) }
	case SortByLatitude:
		return func(a, b WaterObject) int { return cmp.Compare(a.Latitude, b.Latitude) }
	case SortByLongitude:
		return func(a, b WaterObject) int { return cmp.Compare(a.Longitude, b.Longitude) }
	case SortByPriority:
		return func(a, b WaterObject) int { return cmp.Compare(a.PriorityScore, b.PriorityScore) }
	default:
		return func(a, b WaterObject) int { return cmp.Compare(a.ID, b.ID) }
	}
}

func byString(field func(WaterObject) string) func(a, b WaterObject) int {
	return func(a, b WaterObject) int {
		return strings.Compare(lower(field(a)), lower(field(b)))
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
