package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"metobs/internal/api"
	"metobs/internal/export"
	"metobs/internal/metdata"
	"metobs/internal/models"
)

type fetchOptions struct {
	stations string
	elements string
	from     string
	to       string
	hours    string
	months   string
	tz       string
	typeID   string
	long     bool
	json     bool
}

var fetchOpts fetchOptions

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch observations and print them",
	Long: `Fetch observations for one or more stations over a date range. Dates and
hours are UTC; --tz only changes how timestamps are printed.`,
	Example: `  metobs fetch --stations 18700 --elements TA,TAX --from 2015-11-10 --to 2015-11-13 --hours 0 --tz Europe/Oslo
  metobs fetch --stations 18700,68860 --elements TA --from 2014-12-30 --to 2015-01-02 --long`,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.StringVar(&fetchOpts.stations, "stations", "", "comma separated station numbers")
	f.StringVar(&fetchOpts.elements, "elements", "", "comma separated element codes")
	f.StringVar(&fetchOpts.from, "from", "", "first day, YYYY-MM-DD")
	f.StringVar(&fetchOpts.to, "to", "", "last day, YYYY-MM-DD")
	f.StringVar(&fetchOpts.hours, "hours", "", "comma separated UTC hours, default all")
	f.StringVar(&fetchOpts.months, "months", "", "comma separated months, default all")
	f.StringVar(&fetchOpts.tz, "tz", "", "time zone for printed timestamps, default query.timezone")
	f.StringVar(&fetchOpts.typeID, "type", "", "timeserie type id, default eklima.timeserie_type")
	f.BoolVar(&fetchOpts.long, "long", false, "print one row per observation")
	f.BoolVar(&fetchOpts.json, "json", false, "print JSON instead of CSV")
	fetchCmd.MarkFlagRequired("stations")
	fetchCmd.MarkFlagRequired("elements")
	fetchCmd.MarkFlagRequired("from")
	fetchCmd.MarkFlagRequired("to")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	defaultZone, err := cfg.Location()
	if err != nil {
		return err
	}
	typeID := fetchOpts.typeID
	if typeID == "" {
		typeID = cfg.Eklima.TimeSerieType
	}

	q, err := buildQuery(fetchOpts, typeID, defaultZone)
	if err != nil {
		return err
	}

	svc := metdata.NewService(api.NewEklimaClientFromConfig(cfg, logger), logger)
	table, err := svc.GetMetData(cmd.Context(), q)
	if err != nil {
		return err
	}

	return printTable(cmd.OutOrStdout(), table, fetchOpts.json)
}

func buildQuery(o fetchOptions, typeID string, defaultZone *time.Location) (models.Query, error) {
	q := models.Query{
		TimeSerieTypeID: typeID,
		Stations:        models.ParseCodeList(o.stations),
		Elements:        models.ParseCodeList(o.elements),
		Location:        defaultZone,
		Format:          models.FormatWide,
	}
	if o.long {
		q.Format = models.FormatLong
	}

	var err error
	if q.From, err = time.Parse(models.DateLayout, o.from); err != nil {
		return q, fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
	}
	if q.To, err = time.Parse(models.DateLayout, o.to); err != nil {
		return q, fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
	}
	if q.Hours, err = models.ParseIntList(o.hours); err != nil {
		return q, err
	}
	if q.Months, err = models.ParseIntList(o.months); err != nil {
		return q, err
	}
	if o.tz != "" {
		if q.Location, err = time.LoadLocation(o.tz); err != nil {
			return q, fmt.Errorf("--tz: %w", err)
		}
	}
	return q, nil
}

func printTable(w io.Writer, table models.Table, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}
	return export.WriteCSV(w, table)
}
