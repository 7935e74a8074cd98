package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// NoPDF is the pdf_url sentinel for a missing passport document.
	NoPDF = "#"

	// NoWaterType is shown when an object has no water type.
	NoWaterType = "—"

	// UnknownCondition marks a missing or out-of-range technical condition.
	UnknownCondition = 0
)

// Normalize maps a raw registry record into the canonical view model.
// It never fails: malformed or missing fields fall back to defaults and
// unresolved dictionary ids render as placeholders.
//
// Priority score resolution: priority_score, then the legacy priority field,
// then ComputeScore. Label resolution: an explicit priority_level wins,
// otherwise the resolved score is classified.
func Normalize(raw RawObject, dicts Dictionaries) WaterObject {
	condition := normalizeCondition(raw.TechnicalCondition)
	passportDate := parsePassportDate(raw.PassportDate)

	score := resolveScore(raw, condition, passportDate)
	label, ok := raw.PriorityLevel.Label()
	if !ok {
		label = Classify(score)
	}

	obj := WaterObject{
		ID:                 raw.ID,
		Name:               raw.Name,
		RegionID:           raw.Region.Ptr(),
		RegionName:         lookupName(dicts.Regions, raw.Region, "Регион"),
		ResourceTypeID:     raw.ResourceType.Ptr(),
		ResourceTypeName:   lookupName(dicts.ResourceTypes, raw.ResourceType, "Тип"),
		WaterTypeID:        raw.WaterType.Ptr(),
		WaterTypeName:      NoWaterType,
		Fauna:              bool(raw.Fauna),
		PassportDate:       passportDate,
		TechnicalCondition: condition,
		Latitude:           raw.Latitude.OrZero(),
		Longitude:          raw.Longitude.OrZero(),
		PDFURL:             normalizePDF(raw.PDF),
		PriorityScore:      score,
		PriorityLabel:      label,
	}
	if raw.WaterType.Valid && raw.WaterType.Value != 0 {
		obj.WaterTypeName = lookupName(dicts.WaterTypes, raw.WaterType, "Тип воды")
	}
	return obj
}

// NormalizeAll normalizes a batch, preserving order.
func NormalizeAll(raws []RawObject, dicts Dictionaries) []WaterObject {
	out := make([]WaterObject, len(raws))
	for i := range raws {
		out[i] = Normalize(raws[i], dicts)
	}
	return out
}

// Raw converts the view model back into a registry record carrying the
// explicit score and level, so re-normalizing it reproduces the same priority.
func (w WaterObject) Raw() RawObject {
	raw := RawObject{
		ID:                 w.ID,
		Name:               w.Name,
		Fauna:              LenientBool(w.Fauna),
		TechnicalCondition: Float(float64(w.TechnicalCondition)),
		Latitude:           Float(w.Latitude),
		Longitude:          Float(w.Longitude),
		PriorityScore:      Float(w.PriorityScore),
		PriorityLevel:      w.PriorityLabel.Level(),
	}
	if w.RegionID != nil {
		raw.Region = ID(*w.RegionID)
	}
	if w.ResourceTypeID != nil {
		raw.ResourceType = ID(*w.ResourceTypeID)
	}
	if w.WaterTypeID != nil {
		raw.WaterType = ID(*w.WaterTypeID)
	}
	if !w.PassportDate.IsZero() {
		raw.PassportDate = w.PassportDate.Format(PassportDateLayout)
	}
	if w.HasPDF() {
		pdf := w.PDFURL
		raw.PDF = &pdf
	}
	return raw
}

func resolveScore(raw RawObject, condition int, passportDate time.Time) float64 {
	if raw.PriorityScore.Valid {
		return raw.PriorityScore.Value
	}
	if raw.Priority.Valid {
		return raw.Priority.Value
	}
	return ComputeScore(condition, passportDate)
}

// normalizeCondition keeps whole values in [1,5]; anything else is unknown.
func normalizeCondition(f LenientFloat) int {
	if !f.Valid || f.Value != math.Trunc(f.Value) || f.Value < 1 || f.Value > 5 {
		return UnknownCondition
	}
	return int(f.Value)
}

// parsePassportDate accepts a bare date or an RFC 3339 timestamp and returns
// the zero time for anything else.
func parsePassportDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(PassportDateLayout, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func lookupName(dict Dictionary, id LenientID, kind string) string {
	if !id.Valid {
		return kind + " "
	}
	if name, ok := dict[id.Value]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("%s %d", kind, id.Value)
}

func normalizePDF(pdf *string) string {
	if pdf == nil || strings.TrimSpace(*pdf) == "" {
		return NoPDF
	}
	return *pdf
}
