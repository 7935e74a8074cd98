// Command genmock normalizes the mock registry fixtures with the real domain
// package and writes the derived view model and dashboard statistics, so
// fixture-based test assertions can be refreshed after changing the data.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -objects data/mock/water_objects.json \
//	  -dicts data/mock/dictionaries.json \
//	  -out data/mock/water_objects_normalized.json \
//	  -stats-out data/mock/water_objects_stats.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gidroatlas/atlas-service/internal/domain"
)

// fixtureNow is the frozen clock shared with the fixture-based tests.
var fixtureNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	objectsPath := flag.String("objects", "data/mock/water_objects.json", "raw water objects fixture")
	dictsPath := flag.String("dicts", "data/mock/dictionaries.json", "dictionaries fixture")
	out := flag.String("out", "", "output path for the normalized objects")
	statsOut := flag.String("stats-out", "", "output path for the summary and charts")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	domain.SetClock(clockwork.NewFakeClockAt(fixtureNow))
	defer domain.SetClock(nil)

	raws, err := readJSON[[]domain.RawObject](*objectsPath)
	if err != nil {
		return fmt.Errorf("reading objects: %w", err)
	}
	lists, err := readJSON[domain.DictionaryLists](*dictsPath)
	if err != nil {
		return fmt.Errorf("reading dictionaries: %w", err)
	}

	objects := domain.NormalizeAll(raws, lists.Index())
	log.Printf("normalized %d objects", len(objects))

	if err := writeJSON(*out, objects); err != nil {
		return fmt.Errorf("writing normalized fixture: %w", err)
	}
	log.Printf("wrote normalized fixture: %s", *out)

	summary := domain.Aggregate(objects)
	if *statsOut != "" {
		stats := struct {
			Summary domain.Summary `json:"summary"`
			Charts  domain.Charts  `json:"charts"`
		}{summary, summary.Charts()}
		if err := writeJSON(*statsOut, stats); err != nil {
			return fmt.Errorf("writing stats: %w", err)
		}
		log.Printf("wrote stats: %s", *statsOut)
	}

	printStats(objects, summary)
	return nil
}

func readJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(objects []domain.WaterObject, s domain.Summary) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", s.Total)
	fmt.Printf("With fauna: %d\n", s.WithFauna)
	fmt.Printf("Average condition: %.1f\n", s.AvgCondition)
	fmt.Printf("By priority: high=%d, medium=%d, low=%d\n",
		s.PriorityCount(domain.LabelHigh), s.PriorityCount(domain.LabelMedium), s.PriorityCount(domain.LabelLow))

	printBuckets("By region", s.ByRegion)
	printBuckets("By water type", s.ByWaterType)

	fmt.Println("\nPer object:")
	for _, o := range domain.Sort(objects, domain.DefaultSort) {
		fmt.Printf("  %3d %-28s score=%6.2f label=%-8s tc=%d region=%q water=%q\n",
			o.ID, o.Name, o.PriorityScore, o.PriorityLabel, o.TechnicalCondition, o.RegionName, o.WaterTypeName)
	}
}

func printBuckets(title string, buckets []domain.Bucket) {
	fmt.Printf("%s (%d):", title, len(buckets))
	for _, b := range buckets {
		fmt.Printf(" %s=%d", b.Label, b.Count)
	}
	fmt.Println()
}
