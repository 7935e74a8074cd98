package catalog

import (
	"fmt"
	"time"

	"github.com/gidroatlas/atlas-service/internal/adapter/registry"
	"github.com/gidroatlas/atlas-service/internal/domain"
)

// Draft is the editable copy of the object currently open. It diverges from
// the collection until saved.
type Draft struct {
	Object   domain.WaterObject
	Priority *domain.PriorityRecord
}

// Preview is the priority the draft would get from the default formula.
type Preview struct {
	Score float64              `json:"score"`
	Label domain.PriorityLabel `json:"label"`
}

// Preview recomputes the priority from the draft's current technical
// condition and passport date.
func (d *Draft) Preview() Preview {
	score := domain.ComputeScore(d.Object.TechnicalCondition, d.Object.PassportDate)
	return Preview{Score: score, Label: domain.Classify(score)}
}

// PriorityInput returns the priority form values, defaulted like the registry does.
func (d *Draft) PriorityInput() registry.PriorityInput {
	if d.Priority == nil {
		return registry.PriorityInput{}.WithDefaults()
	}
	return registry.PriorityInput{
		Score:          d.Priority.Score,
		Level:          d.Priority.Level,
		FormulaVersion: d.Priority.FormulaVersion,
	}.WithDefaults()
}

func (d *Draft) SetName(name string) { d.Object.Name = name }

func (d *Draft) SetFauna(fauna bool) { d.Object.Fauna = fauna }

func (d *Draft) SetRegion(id int64) { d.Object.RegionID = &id }

func (d *Draft) SetResourceType(id int64) { d.Object.ResourceTypeID = &id }

// SetWaterType sets the water type; 0 clears it.
func (d *Draft) SetWaterType(id int64) {
	if id == 0 {
		d.Object.WaterTypeID = nil
		return
	}
	d.Object.WaterTypeID = &id
}

func (d *Draft) SetPassportDate(date time.Time) { d.Object.PassportDate = date }

// SetTechnicalCondition accepts 1 (best) through 5 (worst).
func (d *Draft) SetTechnicalCondition(condition int) error {
	if condition < 1 || condition > 5 {
		return fmt.Errorf("technical condition %d out of range 1..5", condition)
	}
	d.Object.TechnicalCondition = condition
	return nil
}

// SetCoordinates sets the location in decimal degrees.
func (d *Draft) SetCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v out of range", lon)
	}
	d.Object.Latitude, d.Object.Longitude = lat, lon
	return nil
}

// SetPDF sets the passport document link; an empty url clears it.
func (d *Draft) SetPDF(url string) {
	if url == "" {
		url = domain.NoPDF
	}
	d.Object.PDFURL = url
}

// Patch is a partial edit of a draft. Nil fields are left unchanged.
type Patch struct {
	Name               *string  `json:"name,omitempty"`
	Region             *int64   `json:"region,omitempty"`
	ResourceType       *int64   `json:"resource_type,omitempty"`
	WaterType          *int64   `json:"water_type,omitempty"`
	Fauna              *bool    `json:"fauna,omitempty"`
	PassportDate       *string  `json:"passport_date,omitempty"`
	TechnicalCondition *int     `json:"technical_condition,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
	PDF                *string  `json:"pdf,omitempty"`
}

// Apply runs the matching setters on d. It stops at the first invalid value.
func (p Patch) Apply(d *Draft) error {
	if p.Name != nil {
		d.SetName(*p.Name)
	}
	if p.Region != nil {
		d.SetRegion(*p.Region)
	}
	if p.ResourceType != nil {
		d.SetResourceType(*p.ResourceType)
	}
	if p.WaterType != nil {
		d.SetWaterType(*p.WaterType)
	}
	if p.Fauna != nil {
		d.SetFauna(*p.Fauna)
	}
	if p.PassportDate != nil {
		if *p.PassportDate == "" {
			d.SetPassportDate(time.Time{})
		} else {
			date, err := time.Parse(domain.PassportDateLayout, *p.PassportDate)
			if err != nil {
				return fmt.Errorf("passport date %q: want YYYY-MM-DD", *p.PassportDate)
			}
			d.SetPassportDate(date)
		}
	}
	if p.TechnicalCondition != nil {
		if err := d.SetTechnicalCondition(*p.TechnicalCondition); err != nil {
			return err
		}
	}
	if p.Latitude != nil || p.Longitude != nil {
		lat, lon := d.Object.Latitude, d.Object.Longitude
		if p.Latitude != nil {
			lat = *p.Latitude
		}
		if p.Longitude != nil {
			lon = *p.Longitude
		}
		if err := d.SetCoordinates(lat, lon); err != nil {
			return err
		}
	}
	if p.PDF != nil {
		d.SetPDF(*p.PDF)
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}
