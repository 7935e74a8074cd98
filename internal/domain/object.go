package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// PassportDateLayout is the wire format of passport_date.
const PassportDateLayout = "2006-01-02"

// PriorityLabel is the localized urgency category shown to users.
type PriorityLabel string

const (
	LabelHigh   PriorityLabel = "Высокий"
	LabelMedium PriorityLabel = "Средний"
	LabelLow    PriorityLabel = "Низкий"
)

// PriorityLabels lists the labels in chart order.
var PriorityLabels = []PriorityLabel{LabelHigh, LabelMedium, LabelLow}

// PriorityLevel is the backend's explicit level tag.
type PriorityLevel string

const (
	LevelHigh   PriorityLevel = "high"
	LevelMedium PriorityLevel = "medium"
	LevelLow    PriorityLevel = "low"
)

// Label maps a level tag to its localized label. ok is false for unknown tags.
func (l PriorityLevel) Label() (PriorityLabel, bool) {
	switch l {
	case LevelHigh:
		return LabelHigh, true
	case LevelMedium:
		return LabelMedium, true
	case LevelLow:
		return LabelLow, true
	default:
		return "", false
	}
}

// Level is the inverse of PriorityLevel.Label. Unknown labels map to low.
func (l PriorityLabel) Level() PriorityLevel {
	switch l {
	case LabelHigh:
		return LevelHigh
	case LabelMedium:
		return LevelMedium
	default:
		return LevelLow
	}
}

// LenientFloat decodes a JSON number, a numeric string, or null.
// Anything else decodes without error and leaves Valid false.
type LenientFloat struct {
	Value float64
	Valid bool
}

// Float returns a valid LenientFloat.
func Float(v float64) LenientFloat { return LenientFloat{Value: v, Valid: true} }

// OrZero returns the value, or 0 when the source was missing or unparsable.
func (f LenientFloat) OrZero() float64 {
	if !f.Valid {
		return 0
	}
	return f.Value
}

func (f *LenientFloat) UnmarshalJSON(data []byte) error {
	*f = LenientFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	*f = LenientFloat{Value: v, Valid: true}
	return nil
}

func (f LenientFloat) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// LenientID decodes a nullable foreign key sent as a number or a string.
type LenientID struct {
	Value int64
	Valid bool
}

// ID returns a valid LenientID.
func ID(v int64) LenientID { return LenientID{Value: v, Valid: true} }

// Ptr returns nil for a missing id.
func (id LenientID) Ptr() *int64 {
	if !id.Valid {
		return nil
	}
	v := id.Value
	return &v
}

func (id *LenientID) UnmarshalJSON(data []byte) error {
	var f LenientFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*id = LenientID{}
	if f.Valid {
		*id = LenientID{Value: int64(f.Value), Valid: true}
	}
	return nil
}

func (id LenientID) MarshalJSON() ([]byte, error) {
	if !id.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(id.Value)
}

// LenientBool decodes JSON booleans plus the truthy values the registry
// occasionally sends for fauna ("true", 1, "1").
type LenientBool bool

func (b *LenientBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch strings.ToLower(strings.Trim(string(data), `"`)) {
	case "true", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

// RawObject is a water object exactly as the registry API returns it.
type RawObject struct {
	ID                 int64         `json:"id"`
	Name               string        `json:"name"`
	Region             LenientID     `json:"region"`
	ResourceType       LenientID     `json:"resource_type"`
	WaterType          LenientID     `json:"water_type"`
	Fauna              LenientBool   `json:"fauna"`
	PassportDate       string        `json:"passport_date"`
	TechnicalCondition LenientFloat  `json:"technical_condition"`
	Latitude           LenientFloat  `json:"latitude"`
	Longitude          LenientFloat  `json:"longitude"`
	PDF                *string       `json:"pdf"`
	PriorityScore      LenientFloat  `json:"priority_score"`
	Priority           LenientFloat  `json:"priority"`
	PriorityLevel      PriorityLevel `json:"priority_level,omitempty"`
}

// WaterObject is the canonical view model derived from a RawObject.
type WaterObject struct {
	ID                 int64         `json:"id"`
	Name               string        `json:"name"`
	RegionID           *int64        `json:"region_id"`
	RegionName         string        `json:"region_name"`
	ResourceTypeID     *int64        `json:"resource_type_id"`
	ResourceTypeName   string        `json:"resource_type_name"`
	WaterTypeID        *int64        `json:"water_type_id"`
	WaterTypeName      string        `json:"water_type_name"`
	Fauna              bool          `json:"fauna"`
	PassportDate       time.Time     `json:"passport_date"`
	TechnicalCondition int           `json:"technical_condition"`
	Latitude           float64       `json:"latitude"`
	Longitude          float64       `json:"longitude"`
	PDFURL             string        `json:"pdf_url"`
	PriorityScore      float64       `json:"priority_score"`
	PriorityLabel      PriorityLabel `json:"priority_label"`
}

// HasPDF reports whether the passport document link is present.
func (w WaterObject) HasPDF() bool { return w.PDFURL != "" && w.PDFURL != NoPDF }

// PriorityRecord is the per-object priority entry managed by its own endpoint.
type PriorityRecord struct {
	ObjectID       int64         `json:"object,omitempty"`
	Score          float64       `json:"score"`
	Level          PriorityLevel `json:"level"`
	FormulaVersion string        `json:"formula_version"`
	UpdatedAt      time.Time     `json:"updated_at,omitzero"`
}

// DictionaryEntry is one {id, name} row of a registry dictionary.
type DictionaryEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Dictionary resolves ids to names.
type Dictionary map[int64]string

// NewDictionary indexes dictionary entries by id.
func NewDictionary(entries []DictionaryEntry) Dictionary {
	d := make(Dictionary, len(entries))
	for _, e := range entries {
		d[e.ID] = e.Name
	}
	return d
}

// Dictionaries bundles the lookups needed by the normalizer.
type Dictionaries struct {
	Regions       Dictionary
	ResourceTypes Dictionary
	WaterTypes    Dictionary
}

// DictionaryLists holds the dictionaries as the registry lists them.
type DictionaryLists struct {
	Regions       []DictionaryEntry `json:"regions"`
	ResourceTypes []DictionaryEntry `json:"resource_types"`
	WaterTypes    []DictionaryEntry `json:"water_types"`
}

// Index builds the id lookups.
func (l DictionaryLists) Index() Dictionaries {
	return Dictionaries{
		Regions:       NewDictionary(l.Regions),
		ResourceTypes: NewDictionary(l.ResourceTypes),
		WaterTypes:    NewDictionary(l.WaterTypes),
	}
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
