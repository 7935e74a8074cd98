package domain

import "math"

// UnspecifiedWaterType labels objects with an empty water type name in charts.
const UnspecifiedWaterType = "Не указано"

// Bucket is one labelled count in a chart series.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary holds the dashboard statistics over a filtered collection.
type Summary struct {
	Total           int      `json:"total"`
	WithFauna       int      `json:"with_fauna"`
	AvgCondition    float64  `json:"avg_condition"`
	ByRegion        []Bucket `json:"by_region"`
	ByWaterType     []Bucket `json:"by_water_type"`
	ByPriorityLabel []Bucket `json:"by_priority_label"`
}

// Aggregate derives grouped counts from objects. Region and water type
// buckets appear in first-seen order; priority buckets always list
// High, Medium, Low, with zero counts for unseen labels.
func Aggregate(objects []WaterObject) Summary {
	s := Summary{Total: len(objects)}

	regions := newCounter()
	waterTypes := newCounter()
	priorities := newCounter()
	for _, l := range PriorityLabels {
		priorities.add(string(l), 0)
	}

	conditionSum := 0
	for _, o := range objects {
		if o.Fauna {
			s.WithFauna++
		}
		conditionSum += o.TechnicalCondition

		regions.add(o.RegionName, 1)

		waterType := o.WaterTypeName
		if waterType == "" {
			waterType = UnspecifiedWaterType
		}
		waterTypes.add(waterType, 1)

		if priorities.has(string(o.PriorityLabel)) {
			priorities.add(string(o.PriorityLabel), 1)
		}
	}

	if s.Total > 0 {
		s.AvgCondition = roundTenth(float64(conditionSum) / float64(s.Total))
	}
	s.ByRegion = regions.buckets()
	s.ByWaterType = waterTypes.buckets()
	s.ByPriorityLabel = priorities.buckets()
	return s
}

// PriorityCount returns the count for label, or 0 if absent.
func (s Summary) PriorityCount(label PriorityLabel) int {
	for _, b := range s.ByPriorityLabel {
		if b.Label == string(label) {
			return b.Count
		}
	}
	return 0
}

// ChartSeries is a chart-ready label/value pair of parallel slices.
type ChartSeries struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// Charts holds the three dashboard charts.
type Charts struct {
	Regions    ChartSeries `json:"regions"`
	WaterTypes ChartSeries `json:"water_types"`
	Priority   ChartSeries `json:"priority"`
}

// Charts converts the summary into chart series.
func (s Summary) Charts() Charts {
	return Charts{
		Regions:    series("Количество объектов", s.ByRegion),
		WaterTypes: series("Типы воды", s.ByWaterType),
		Priority:   series("Приоритет обследования", s.ByPriorityLabel),
	}
}

func series(title string, buckets []Bucket) ChartSeries {
	cs := ChartSeries{
		Title:  title,
		Labels: make([]string, len(buckets)),
		Data:   make([]int, len(buckets)),
	}
	for i, b := range buckets {
		cs.Labels[i] = b.Label
		cs.Data[i] = b.Count
	}
	return cs
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// counter is an insertion-ordered label count.
type counter struct {
	order []string
	index map[string]int
	count []int
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) has(label string) bool {
	_, ok := c.index[label]
	return ok
}

func (c *counter) add(label string, n int) {
	i, ok := c.index[label]
	if !ok {
		i = len(c.order)
		c.index[label] = i
		c.order = append(c.order, label)
		c.count = append(c.count, 0)
	}
	c.count[i] += n
}

func (c *counter) buckets() []Bucket {
	out := make([]Bucket, len(c.order))
	for i, label := range c.order {
		out[i] = Bucket{Label: label, Count: c.count[i]}
	}
	return out
}
