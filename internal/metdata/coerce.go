package metdata

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"metobs/internal/models"
)

// ElementTypes maps element codes to the type their columns are cast to.
// See http://eklima.met.no/Help/Stations/toDay/all/en_e18700.html for the codes.
var ElementTypes = map[string]models.Kind{
	"TA":     models.KindFloat,
	"TAX":    models.KindFloat,
	"TAX_12": models.KindFloat,
	"TAN":    models.KindFloat,
	"TAN_12": models.KindFloat,
	"TD":     models.KindFloat,
	"SA":     models.KindFloat,
	"RA":     models.KindFloat,
	"RR_12":  models.KindFloat,
	"RR_24":  models.KindFloat,
	"FF":     models.KindFloat,
	"DD":     models.KindFloat,

	models.ColumnStation: models.KindInt,
	"SD":                 models.KindInt,
}

// columnKind resolves the declared type of a column. In a station suffixed
// table "TA_18700" inherits the type of TA; otherwise only exact codes match,
// so an unknown "DD_06" stays untyped. "TAX_12" is matched exactly before any
// suffix is stripped.
func columnKind(name string, suffixed bool) (models.Kind, bool) {
	if k, ok := ElementTypes[name]; ok {
		return k, true
	}
	if !suffixed {
		return models.KindNull, false
	}
	if i := strings.LastIndex(name, "_"); i > 0 {
		if _, err := strconv.Atoi(name[i+1:]); err == nil {
			k, ok := ElementTypes[name[:i]]
			return k, ok
		}
	}
	return models.KindNull, false
}

// Coerce casts the columns of a wide table to their declared types in place.
// suffixed tells whether column names carry a "_<station>" suffix. Nulls stay
// null and columns without a declared type keep their raw strings.
func Coerce(table *models.WideTable, suffixed bool) error {
	for i := range table.Columns {
		col := &table.Columns[i]
		kind, ok := columnKind(col.Name, suffixed)
		if !ok {
			continue
		}
		for j, v := range col.Values {
			cast, err := castValue(v, kind)
			if err != nil {
				return fmt.Errorf("%w: column %s row %d: %w", models.ErrXMLParsing, col.Name, j, err)
			}
			col.Values[j] = cast
		}
	}
	return nil
}

func castValue(v models.Value, kind models.Kind) (models.Value, error) {
	if v.Kind != models.KindString {
		return v, nil
	}
	raw := strings.TrimSpace(v.Str)

	switch kind {
	case models.KindFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return v, fmt.Errorf("%q is not a float", raw)
		}
		return models.FloatValue(f), nil
	case models.KindInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return v, fmt.Errorf("%q is not an integer", raw)
		}
		return models.IntValue(n), nil
	default:
		return v, nil
	}
}
