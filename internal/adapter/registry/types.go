package registry

import (
	"github.com/gidroatlas/atlas-service/internal/domain"
)

// Default values the registry applies to priority records.
const (
	DefaultFormulaVersion = "v1"
	DefaultPriorityLevel  = domain.LevelLow
)

// Credentials is the body of the login and register endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ObjectUpdate is the full-replacement body of PUT /atla/objects/{id}/.
type ObjectUpdate struct {
	Name               string  `json:"name"`
	Region             *int64  `json:"region"`
	ResourceType       *int64  `json:"resource_type"`
	WaterType          *int64  `json:"water_type"`
	Fauna              bool    `json:"fauna"`
	PassportDate       string  `json:"passport_date"`
	TechnicalCondition int     `json:"technical_condition"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	PDF                *string `json:"pdf"`
	Priority           float64 `json:"priority"`
}

// NewObjectUpdate builds the update body from an edited object. Zero ids are
// sent as null, the "#" pdf sentinel as null, and the priority field carries
// the object's current score.
func NewObjectUpdate(obj domain.WaterObject) ObjectUpdate {
	u := ObjectUpdate{
		Name:               obj.Name,
		Region:             nonZeroID(obj.RegionID),
		ResourceType:       nonZeroID(obj.ResourceTypeID),
		WaterType:          nonZeroID(obj.WaterTypeID),
		Fauna:              obj.Fauna,
		TechnicalCondition: obj.TechnicalCondition,
		Latitude:           obj.Latitude,
		Longitude:          obj.Longitude,
		Priority:           obj.PriorityScore,
	}
	if !obj.PassportDate.IsZero() {
		u.PassportDate = obj.PassportDate.Format(domain.PassportDateLayout)
	}
	if obj.HasPDF() {
		pdf := obj.PDFURL
		u.PDF = &pdf
	}
	return u
}

// PriorityInput is the body of PUT /atla/priority-scores/{id}/by-object/.
type PriorityInput struct {
	Score          float64              `json:"score"`
	Level          domain.PriorityLevel `json:"level"`
	FormulaVersion string               `json:"formula_version"`
}

// WithDefaults fills an empty level and formula version.
func (p PriorityInput) WithDefaults() PriorityInput {
	if p.Level == "" {
		p.Level = DefaultPriorityLevel
	}
	if p.FormulaVersion == "" {
		p.FormulaVersion = DefaultFormulaVersion
	}
	return p
}

func nonZeroID(id *int64) *int64 {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}
