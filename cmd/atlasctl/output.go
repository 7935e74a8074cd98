package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/gidroatlas/atlas-service/internal/catalog"
	"github.com/gidroatlas/atlas-service/internal/domain"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func passportText(o domain.WaterObject) string {
	if o.PassportDate.IsZero() {
		return "—"
	}
	return o.PassportDate.Format(domain.PassportDateLayout)
}

func conditionText(c int) string {
	if c == domain.UnknownCondition {
		return "?"
	}
	return fmt.Sprint(c)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printObjects(w io.Writer, objects []domain.WaterObject) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tREGION\tRESOURCE\tWATER\tFAUNA\tPASSPORT\tCOND\tSCORE\tPRIORITY")
	for _, o := range objects {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%.2f\t%s\n",
			o.ID, o.Name, o.RegionName, o.ResourceTypeName, o.WaterTypeName,
			yesNo(o.Fauna), passportText(o), conditionText(o.TechnicalCondition),
			o.PriorityScore, o.PriorityLabel)
	}
	tw.Flush()
	fmt.Fprintf(w, "%d objects\n", len(objects))
}

func printObject(w io.Writer, d *catalog.Draft) {
	o := d.Object
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "ID:\t%d\n", o.ID)
	fmt.Fprintf(tw, "Name:\t%s\n", o.Name)
	fmt.Fprintf(tw, "Region:\t%s\n", o.RegionName)
	fmt.Fprintf(tw, "Resource type:\t%s\n", o.ResourceTypeName)
	fmt.Fprintf(tw, "Water type:\t%s\n", o.WaterTypeName)
	fmt.Fprintf(tw, "Fauna:\t%s\n", yesNo(o.Fauna))
	fmt.Fprintf(tw, "Passport date:\t%s\n", passportText(o))
	fmt.Fprintf(tw, "Condition:\t%s\n", conditionText(o.TechnicalCondition))
	fmt.Fprintf(tw, "Coordinates:\t%.6f, %.6f\n", o.Latitude, o.Longitude)
	if o.HasPDF() {
		fmt.Fprintf(tw, "Passport PDF:\t%s\n", o.PDFURL)
	}
	fmt.Fprintf(tw, "Priority:\t%.2f (%s)\n", o.PriorityScore, o.PriorityLabel)
	preview := d.Preview()
	fmt.Fprintf(tw, "Formula:\t%.2f (%s)\n", preview.Score, preview.Label)
	tw.Flush()
	if d.Priority != nil {
		printPriority(w, *d.Priority)
	}
}

func printPriority(w io.Writer, rec domain.PriorityRecord) {
	fmt.Fprintf(w, "Record:   score %.2f, level %s, formula %s", rec.Score, rec.Level, rec.FormulaVersion)
	if !rec.UpdatedAt.IsZero() {
		fmt.Fprintf(w, ", updated %s", rec.UpdatedAt.Format(domain.PassportDateLayout))
	}
	fmt.Fprintln(w)
}

func printDictionary(w io.Writer, title string, d domain.Dictionary) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, id := range slices.Sorted(maps.Keys(d)) {
		fmt.Fprintf(w, "  %d\t%s\n", id, d[id])
	}
}

func printSummary(w io.Writer, s domain.Summary) {
	fmt.Fprintf(w, "Objects:            %d\n", s.Total)
	fmt.Fprintf(w, "With fauna:         %d\n", s.WithFauna)
	fmt.Fprintf(w, "Average condition:  %.1f\n", s.AvgCondition)
	printBuckets(w, "Priority", s.ByPriorityLabel)
	printBuckets(w, "Regions", s.ByRegion)
	printBuckets(w, "Water types", s.ByWaterType)
}

func printBuckets(w io.Writer, title string, buckets []domain.Bucket) {
	fmt.Fprintf(w, "%s:\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, b := range buckets {
		fmt.Fprintf(tw, "  %s\t%d\n", b.Label, b.Count)
	}
	tw.Flush()
}
