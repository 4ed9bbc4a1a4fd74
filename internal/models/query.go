package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// SupportedTimeSerieType is the only timeserie type the service client accepts
const SupportedTimeSerieType = "2"

// DateLayout is the calendar date format used in service queries
const DateLayout = "2006-01-02"

// Format selects the shape of an assembled table
type Format string

const (
	FormatWide Format = "wide"
	FormatLong Format = "long"
)

// ParseFormat accepts "wide", "long" or an empty string (wide)
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatWide:
		return FormatWide, nil
	case FormatLong:
		return FormatLong, nil
	default:
		return "", &QueryError{Message: fmt.Sprintf("unknown format %q (allowed: wide, long)", s)}
	}
}

var validate = validator.New()

// Query describes one observation request across an arbitrary date range
type Query struct {
	TimeSerieTypeID string    `validate:"required"`
	Stations        []string  `validate:"required,min=1,dive,required"`
	Elements        []string  `validate:"required,min=1,dive,required"`
	From            time.Time `validate:"required"`
	To              time.Time `validate:"required,gtefield=From"`
	Hours           []int     `validate:"omitempty,dive,min=0,max=23"`
	Months          []int     `validate:"omitempty,dive,min=1,max=12"`

	// Location is the zone results are expressed in; nil means UTC
	Location *time.Location `validate:"-"`
	Format   Format         `validate:"omitempty,oneof=wide long"`
}

// Validate checks the query shape. Station and element codes are not checked
// against any master list.
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return &QueryError{Message: strings.Join(msgs, "; ")}
		}
		return &QueryError{Message: err.Error()}
	}
	return nil
}

// Zone returns the requested location, defaulting to UTC
func (q Query) Zone() *time.Location {
	if q.Location == nil {
		return time.UTC
	}
	return q.Location
}

// AllHours returns 0..23
func AllHours() []int {
	hours := make([]int, 24)
	for i := range hours {
		hours[i] = i
	}
	return hours
}

// ParseIntList parses a comma separated list such as "0,6,12,18". Blank input yields nil.
func ParseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, &QueryError{Message: fmt.Sprintf("invalid number %q", p)}
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseCodeList splits "TA, TAX" into trimmed, non-empty codes
func ParseCodeList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
