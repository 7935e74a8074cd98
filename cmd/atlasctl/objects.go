package main

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gidroatlas/atlas-service/internal/catalog"
	"github.com/gidroatlas/atlas-service/internal/domain"
)

// filterFlags binds the expert-only filter flags. Values are collected as
// query parameters and parsed with the same rules the API uses.
type filterFlags struct {
	values map[string]*string
}

var filterFlagParams = []struct {
	flag, param, usage string
}{
	{"search", domain.ParamSearch, "Name contains (case-insensitive)"},
	{"region", domain.ParamRegion, "Region id"},
	{"resource-type", domain.ParamResourceType, "Resource type id"},
	{"water-type", domain.ParamWaterType, "Water type id"},
	{"fauna", domain.ParamFauna, "Fauna present (true|false)"},
	{"passport-from", domain.ParamPassportDateAfter, "Passport date on or after (YYYY-MM-DD)"},
	{"passport-to", domain.ParamPassportDateBefore, "Passport date on or before (YYYY-MM-DD)"},
	{"condition", domain.ParamTechnicalCondition, "Technical condition (1-5)"},
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	f.values = make(map[string]*string, len(filterFlagParams))
	for _, p := range filterFlagParams {
		f.values[p.param] = cmd.Flags().String(p.flag, "", p.usage)
	}
}

func (f *filterFlags) criteria() (domain.Criteria, error) {
	q := url.Values{}
	for param, v := range f.values {
		if *v != "" {
			q.Set(param, *v)
		}
	}
	return domain.ParseCriteria(q)
}

// sortFlags binds --sort and --desc.
type sortFlags struct {
	key  string
	desc bool
}

func (f *sortFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.key, "sort", "", "Sort column (id, name, regionName, resourceTypeName, waterTypeName, fauna, passport_date, technical_condition, latitude, longitude, priority)")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "Sort descending")
}

// spec returns the requested sort, or the default priority-descending sort.
func (f *sortFlags) spec() (domain.SortSpec, error) {
	if f.key == "" {
		return domain.DefaultSort, nil
	}
	key, err := domain.ParseSortKey(f.key)
	if err != nil {
		return domain.SortSpec{}, err
	}
	spec := domain.SortSpec{Key: key, Direction: domain.Asc}
	if f.desc {
		spec.Direction = domain.Desc
	}
	return spec, nil
}

// load fetches dictionaries and the objects matching criteria. Filters are
// only honoured for experts.
func (a *app) load(cmd *cobra.Command, criteria domain.Criteria) error {
	if !criteria.Empty() {
		if _, err := a.requireExpert(); err != nil {
			return fmt.Errorf("filters: %w", err)
		}
	}
	if err := a.catalog.LoadDictionaries(cmd.Context()); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), catalog.MsgDictionariesFailed)
	}
	if err := a.catalog.Refresh(cmd.Context(), criteria); err != nil {
		a.logger.Debug("refresh failed", "error", err)
		return errors.New(catalog.MsgObjectsFailed)
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid object id %q", s)
	}
	return id, nil
}

func (a *app) objectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "objects",
		Aliases: []string{"obj"},
		Short:   "List, show, edit and delete water objects",
	}
	cmd.AddCommand(a.objectsListCmd(), a.objectsShowCmd(), a.objectsUpdateCmd(), a.objectsDeleteCmd())
	return cmd
}

func (a *app) objectsListCmd() *cobra.Command {
	var (
		filters filterFlags
		sorting sortFlags
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List water objects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}
			spec, err := sorting.spec()
			if err != nil {
				return err
			}
			if err := a.load(cmd, criteria); err != nil {
				return err
			}
			view := a.catalog.View(spec)
			if asJSON {
				return printJSON(cmd.OutOrStdout(), view.Objects)
			}
			printObjects(cmd.OutOrStdout(), view.Objects)
			return nil
		},
	}
	filters.bind(cmd)
	sorting.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) objectsShowCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one water object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.catalog.LoadDictionaries(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), catalog.MsgDictionariesFailed)
			}
			draft, err := a.catalog.Open(cmd.Context(), id)
			if err != nil {
				return err
			}
			// Priority records are an administrative detail.
			if !a.currentSession().IsExpert() {
				draft.Priority = nil
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), struct {
					Object   domain.WaterObject     `json:"object"`
					Priority *domain.PriorityRecord `json:"priority,omitempty"`
					Preview  catalog.Preview        `json:"preview"`
				}{draft.Object, draft.Priority, draft.Preview()})
			}
			printObject(cmd.OutOrStdout(), draft)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) objectsUpdateCmd() *cobra.Command {
	var (
		name, passportDate, pdf   string
		region, resType, waterTyp int64
		fauna                     bool
		condition                 int
		lat, lon                  float64
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a water object (expert)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := a.requireExpert()
			if err != nil {
				return err
			}

			var patch catalog.Patch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("region") {
				patch.Region = &region
			}
			if flags.Changed("resource-type") {
				patch.ResourceType = &resType
			}
			if flags.Changed("water-type") {
				patch.WaterType = &waterTyp
			}
			if flags.Changed("fauna") {
				patch.Fauna = &fauna
			}
			if flags.Changed("passport-date") {
				patch.PassportDate = &passportDate
			}
			if flags.Changed("condition") {
				patch.TechnicalCondition = &condition
			}
			if flags.Changed("lat") {
				patch.Latitude = &lat
			}
			if flags.Changed("lon") {
				patch.Longitude = &lon
			}
			if flags.Changed("pdf") {
				patch.PDF = &pdf
			}
			if patch.Empty() {
				return errors.New("nothing to update: pass at least one field flag")
			}

			if err := a.catalog.LoadDictionaries(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), catalog.MsgDictionariesFailed)
			}
			draft, err := a.catalog.Edit(cmd.Context(), id)
			if err != nil {
				return err
			}
			if err := patch.Apply(draft); err != nil {
				return err
			}
			if _, err := a.catalog.Save(cmd.Context(), sess, draft); err != nil {
				a.logger.Debug("save failed", "error", err)
				return fmt.Errorf("%s: %w", a.catalog.Message(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.catalog.Message())
			printObject(cmd.OutOrStdout(), draft)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "Name")
	f.Int64Var(&region, "region", 0, "Region id")
	f.Int64Var(&resType, "resource-type", 0, "Resource type id")
	f.Int64Var(&waterTyp, "water-type", 0, "Water type id (0 clears)")
	f.BoolVar(&fauna, "fauna", false, "Fauna present")
	f.StringVar(&passportDate, "passport-date", "", "Passport date YYYY-MM-DD (empty clears)")
	f.IntVar(&condition, "condition", 0, "Technical condition 1 (best) to 5 (worst)")
	f.Float64Var(&lat, "lat", 0, "Latitude")
	f.Float64Var(&lon, "lon", 0, "Longitude")
	f.StringVar(&pdf, "pdf", "", "Passport PDF URL (empty clears)")
	return cmd
}

func (a *app) objectsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a water object (expert)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sess, err := a.requireExpert()
			if err != nil {
				return err
			}
			if err := a.catalog.Delete(cmd.Context(), sess, id); err != nil {
				a.logger.Debug("delete failed", "error", err)
				return fmt.Errorf("%s: %w", a.catalog.Message(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.catalog.Message())
			return nil
		},
	}
}

func (a *app) dictsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "dicts",
		Short: "List regions, resource types and water types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.catalog.LoadDictionaries(cmd.Context()); err != nil {
				return fmt.Errorf("%s: %w", catalog.MsgDictionariesFailed, err)
			}
			d := a.catalog.Dictionaries()
			if asJSON {
				return printJSON(cmd.OutOrStdout(), map[string]domain.Dictionary{
					"regions":        d.Regions,
					"resource_types": d.ResourceTypes,
					"water_types":    d.WaterTypes,
				})
			}
			out := cmd.OutOrStdout()
			printDictionary(out, "Regions", d.Regions)
			printDictionary(out, "Resource types", d.ResourceTypes)
			printDictionary(out, "Water types", d.WaterTypes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	var (
		filters filterFlags
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			criteria, err := filters.criteria()
			if err != nil {
				return err
			}
			if err := a.load(cmd, criteria); err != nil {
				return err
			}
			view := a.catalog.View(domain.SortSpec{})
			if asJSON {
				return printJSON(cmd.OutOrStdout(), struct {
					Summary domain.Summary `json:"summary"`
					Charts  domain.Charts  `json:"charts"`
				}{view.Summary, view.Charts})
			}
			printSummary(cmd.OutOrStdout(), view.Summary)
			return nil
		},
	}
	filters.bind(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
