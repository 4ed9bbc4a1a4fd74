// Package parser flattens eKlima observation fragments into table records.
//
// A fragment looks like
//
//	<item>
//	  <from>2015-11-10T00:00:00.000Z</from>
//	  <location>
//	    <item>
//	      <id>18700</id>
//	      <weatherElement>
//	        <item><id>TA</id><quality>0</quality><value>5.2</value></item>
//	      </weatherElement>
//	    </item>
//	  </location>
//	</item>
//
// Scalar fields may also be carried as attributes of the same name.
package parser

import (
	"fmt"
	"regexp"
	"time"

	"metobs/internal/models"
)

const (
	timestampField = "from"
	locationsField = "location"
	elementsField  = "weatherElement"
	itemTag        = "item"
	idField        = "id"
	valueField     = "value"

	timestampLayout = "2006-01-02T15:04:05.999999Z"
)

var timestampPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{1,6}Z$`)

// Options controls how a fragment is flattened
type Options struct {
	// Location is the zone timestamps are converted to; nil keeps UTC
	Location *time.Location

	// ForceSuffix suffixes wide columns with the station id even when the
	// fragment holds a single location
	ForceSuffix bool
}

type location struct {
	id       string
	elements []element
}

type element struct {
	code  string
	value string
}

// ParseTimestamp parses a fragment timestamp and returns it as naive wall clock
// time in loc.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	if !timestampPattern.MatchString(raw) {
		return time.Time{}, fmt.Errorf("%w: timestamp %q does not match YYYY-MM-DDTHH:MM:SS.ffffffZ", models.ErrXMLParsing, raw)
	}
	ts, err := time.Parse(timestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid timestamp %q: %w", models.ErrXMLParsing, raw, err)
	}

	if loc != nil && loc != time.UTC {
		ts = ts.In(loc)
	}
	return models.NaiveTime(ts), nil
}

// MultipleLocations reports whether the fragment holds more than one station
func MultipleLocations(fragment models.Node) bool {
	if locs, ok := fragment.Child(locationsField); ok {
		return len(locs.Children(itemTag)) > 1
	}
	return false
}

// ToWideRecord flattens a fragment into one row keyed by element code. Codes are
// suffixed with "_<station>" when the fragment holds several stations.
func ToWideRecord(fragment models.Node, opts Options) (models.WideRecord, error) {
	date, locations, err := decode(fragment, opts.Location)
	if err != nil {
		return models.WideRecord{}, err
	}

	record := models.WideRecord{Date: date}
	if len(locations) > 0 {
		record.StNo = locations[0].id
	}

	multiple := opts.ForceSuffix || len(locations) > 1
	for _, loc := range locations {
		for _, el := range loc.elements {
			name := el.code
			if multiple {
				name = el.code + "_" + loc.id
			}

			if v, ok := models.ParseObservedValue(el.value); ok {
				record.Set(name, models.StringValue(v))
			} else {
				record.Set(name, models.Null())
			}
		}
	}

	return record, nil
}

// ToLongRows flattens a fragment into one row per observed variable. Missing
// values produce no row.
func ToLongRows(fragment models.Node, opts Options) ([]models.LongRow, error) {
	date, locations, err := decode(fragment, opts.Location)
	if err != nil {
		return nil, err
	}

	var rows []models.LongRow
	for _, loc := range locations {
		for _, el := range loc.elements {
			v, ok := models.ParseObservedValue(el.value)
			if !ok {
				continue
			}
			rows = append(rows, models.LongRow{
				Date:     date,
				StNo:     loc.id,
				Variable: el.code,
				Value:    v,
			})
		}
	}

	return rows, nil
}

func decode(fragment models.Node, loc *time.Location) (time.Time, []location, error) {
	raw, ok := fragment.Field(timestampField)
	if !ok {
		return time.Time{}, nil, fmt.Errorf("%w: observation has no %q timestamp", models.ErrXMLParsing, timestampField)
	}
	date, err := ParseTimestamp(raw, loc)
	if err != nil {
		return time.Time{}, nil, err
	}

	var locations []location
	if locs, ok := fragment.Child(locationsField); ok {
		for _, item := range locs.Children(itemTag) {
			l, err := decodeLocation(item)
			if err != nil {
				return time.Time{}, nil, fmt.Errorf("observation at %s: %w", raw, err)
			}
			locations = append(locations, l)
		}
	}

	return date, locations, nil
}

func decodeLocation(item models.Node) (location, error) {
	id, ok := item.Field(idField)
	if !ok || id == "" {
		return location{}, fmt.Errorf("%w: location without id", models.ErrXMLParsing)
	}

	l := location{id: id}
	elems, ok := item.Child(elementsField)
	if !ok {
		return l, nil
	}

	for _, e := range elems.Children(itemTag) {
		code, ok := e.Field(idField)
		if !ok || code == "" {
			return location{}, fmt.Errorf("%w: weather element without id at station %s", models.ErrXMLParsing, id)
		}
		value, ok := e.Field(valueField)
		if !ok {
			return location{}, fmt.Errorf("%w: weather element %s at station %s has no value", models.ErrXMLParsing, code, id)
		}
		l.elements = append(l.elements, element{code: code, value: value})
	}

	return l, nil
}
