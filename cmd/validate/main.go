// Command validate checks the mock registry fixtures for integrity: raw
// record shape, dictionary consistency, normalization invariants, and the
// agreement of dashboard aggregates with the normalized collection. When a
// normalized fixture produced by genmock is given, it is compared against a
// fresh normalization.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -objects data/mock/water_objects.json \
//	  -dicts data/mock/dictionaries.json \
//	  -normalized data/mock/water_objects_normalized.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"

	"github.com/gidroatlas/atlas-service/internal/domain"
)

// fixtureNow matches the clock genmock normalizes with.
var fixtureNow = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	objectsPath := flag.String("objects", "data/mock/water_objects.json", "raw water objects fixture")
	dictsPath := flag.String("dicts", "data/mock/dictionaries.json", "dictionaries fixture")
	normalizedPath := flag.String("normalized", "", "optional normalized fixture written by genmock")
	flag.Parse()

	os.Exit(run(*objectsPath, *dictsPath, *normalizedPath))
}

func run(objectsPath, dictsPath, normalizedPath string) int {
	domain.SetClock(clockwork.NewFakeClockAt(fixtureNow))
	defer domain.SetClock(nil)

	fmt.Println("=== Water Object Fixture Validation ===")
	fmt.Println()

	raws, err := loadJSON[[]domain.RawObject](objectsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load objects: %v\n", err)
		return 1
	}
	lists, err := loadJSON[domain.DictionaryLists](dictsPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dictionaries: %v\n", err)
		return 1
	}

	dicts := lists.Index()
	objects := domain.NormalizeAll(raws, dicts)

	phases := []*phase{
		validateRawRecords(raws),
		validateDictionaries(lists),
		validateNormalization(raws, objects, dicts),
		validateAggregates(objects),
	}
	if normalizedPath != "" {
		stored, err := loadJSON[[]domain.WaterObject](normalizedPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load normalized fixture: %v\n", err)
			return 1
		}
		phases = append(phases, validateNormalizedFixture(stored, objects))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d objects, %d regions, %d resource types, %d water types\n",
		len(raws), len(lists.Regions), len(lists.ResourceTypes), len(lists.WaterTypes))
	printUnresolved(raws, dicts)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) (T, error) {
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

// ── Phases ──

func validateRawRecords(raws []domain.RawObject) *phase {
	p := &phase{name: "Raw records"}
	if len(raws) == 0 {
		p.errorf("no objects")
	}
	seen := make(map[int64]bool, len(raws))
	for i, r := range raws {
		if r.ID <= 0 {
			p.errorf("record %d: non-positive id %d", i, r.ID)
		}
		if seen[r.ID] {
			p.errorf("record %d: duplicate id %d", i, r.ID)
		}
		seen[r.ID] = true
		if r.Name == "" {
			p.errorf("object %d: empty name", r.ID)
		}
		if r.PriorityLevel != "" {
			if _, ok := r.PriorityLevel.Label(); !ok {
				p.errorf("object %d: unknown priority_level %q", r.ID, r.PriorityLevel)
			}
		}
	}
	return p
}

func validateDictionaries(lists domain.DictionaryLists) *phase {
	p := &phase{name: "Dictionaries"}
	check := func(kind string, entries []domain.DictionaryEntry) {
		if len(entries) == 0 {
			p.errorf("%s: empty", kind)
		}
		seen := make(map[int64]bool, len(entries))
		for _, e := range entries {
			if seen[e.ID] {
				p.errorf("%s: duplicate id %d", kind, e.ID)
			}
			seen[e.ID] = true
			if e.Name == "" {
				p.errorf("%s %d: empty name", kind, e.ID)
			}
		}
	}
	check("regions", lists.Regions)
	check("resource types", lists.ResourceTypes)
	check("water types", lists.WaterTypes)
	return p
}

func validateNormalization(raws []domain.RawObject, objects []domain.WaterObject, dicts domain.Dictionaries) *phase {
	p := &phase{name: "Normalization invariants"}
	if len(raws) != len(objects) {
		p.errorf("normalized %d objects from %d records", len(objects), len(raws))
		return p
	}
	for i, o := range objects {
		raw := raws[i]
		if o.ID != raw.ID {
			p.errorf("position %d: id %d, want %d", i, o.ID, raw.ID)
		}
		if o.TechnicalCondition < domain.UnknownCondition || o.TechnicalCondition > 5 {
			p.errorf("object %d: technical condition %d out of range", o.ID, o.TechnicalCondition)
		}
		if o.RegionName == "" || o.ResourceTypeName == "" || o.WaterTypeName == "" {
			p.errorf("object %d: empty display name", o.ID)
		}
		if _, explicit := raw.PriorityLevel.Label(); !explicit && o.PriorityLabel != domain.Classify(o.PriorityScore) {
			p.errorf("object %d: label %s does not match score %.2f", o.ID, o.PriorityLabel, o.PriorityScore)
		}
		hasWaterType := raw.WaterType.Valid && raw.WaterType.Value != 0
		if !hasWaterType && o.WaterTypeName != domain.NoWaterType {
			p.errorf("object %d: water type name %q without a water type", o.ID, o.WaterTypeName)
		}
		if hasWaterType {
			if name, ok := dicts.WaterTypes[raw.WaterType.Value]; ok && o.WaterTypeName != name {
				p.errorf("object %d: water type name %q, want %q", o.ID, o.WaterTypeName, name)
			}
		}
		if o.PDFURL == "" {
			p.errorf("object %d: empty pdf url", o.ID)
		}

		again := domain.Normalize(o.Raw(), dicts)
		if diff := cmp.Diff(o, again, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			p.errorf("object %d: not stable under re-normalization (-first +second):\n%s", o.ID, diff)
		}
	}
	return p
}

func validateAggregates(objects []domain.WaterObject) *phase {
	p := &phase{name: "Aggregates"}
	s := domain.Aggregate(objects)

	if s.Total != len(objects) {
		p.errorf("total %d, want %d", s.Total, len(objects))
	}
	sum := func(buckets []domain.Bucket) int {
		n := 0
		for _, b := range buckets {
			n += b.Count
		}
		return n
	}
	if n := sum(s.ByPriorityLabel); n != s.Total {
		p.errorf("priority buckets sum to %d, want %d", n, s.Total)
	}
	if n := sum(s.ByRegion); n != s.Total {
		p.errorf("region buckets sum to %d, want %d", n, s.Total)
	}
	if n := sum(s.ByWaterType); n != s.Total {
		p.errorf("water type buckets sum to %d, want %d", n, s.Total)
	}
	if len(s.ByPriorityLabel) != len(domain.PriorityLabels) {
		p.errorf("%d priority buckets, want %d", len(s.ByPriorityLabel), len(domain.PriorityLabels))
	}
	fauna := 0
	for _, o := range objects {
		if o.Fauna {
			fauna++
		}
	}
	if fauna != s.WithFauna {
		p.errorf("with fauna %d, want %d", s.WithFauna, fauna)
	}
	return p
}

func validateNormalizedFixture(stored, fresh []domain.WaterObject) *phase {
	p := &phase{name: "Normalized fixture parity"}
	if diff := cmp.Diff(stored, fresh, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
		p.errorf("normalized fixture is stale, rerun genmock (-stored +fresh):\n%s", diff)
	}
	return p
}

// printUnresolved lists foreign keys missing from the dictionaries. These
// render as placeholders and are reported for information only.
func printUnresolved(raws []domain.RawObject, dicts domain.Dictionaries) {
	for _, r := range raws {
		if r.Region.Valid {
			if _, ok := dicts.Regions[r.Region.Value]; !ok {
				fmt.Printf("  note: object %d references unknown region %d\n", r.ID, r.Region.Value)
			}
		}
		if r.ResourceType.Valid {
			if _, ok := dicts.ResourceTypes[r.ResourceType.Value]; !ok {
				fmt.Printf("  note: object %d references unknown resource type %d\n", r.ID, r.ResourceType.Value)
			}
		}
		if r.WaterType.Valid && r.WaterType.Value != 0 {
			if _, ok := dicts.WaterTypes[r.WaterType.Value]; !ok {
				fmt.Printf("  note: object %d references unknown water type %d\n", r.ID, r.WaterType.Value)
			}
		}
	}
}
