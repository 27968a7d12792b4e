package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/tradelog/internal/core"
	"github.com/newthinker/tradelog/internal/storage/trade"
)

const maxPageSize = 1000

// listFilter reads symbol, strategy, instrumentType, from, to and, when
// paginate is set, limit and offset from the query string.
func listFilter(r *http.Request, paginate bool) (trade.ListFilter, error) {
	q := r.URL.Query()
	f := trade.ListFilter{
		Symbol:         q.Get("symbol"),
		Strategy:       q.Get("strategy"),
		InstrumentType: core.InstrumentType(q.Get("instrumentType")),
	}

	var err error
	if f.From, err = parseTime(q.Get("from")); err != nil {
		return f, invalidParam("from", err)
	}
	if f.To, err = parseTime(q.Get("to")); err != nil {
		return f, invalidParam("to", err)
	}

	if !paginate {
		return f, nil
	}
	if f.Limit, err = parseInt(q.Get("limit"), 0, maxPageSize); err != nil {
		return f, invalidParam("limit", err)
	}
	if f.Offset, err = parseInt(q.Get("offset"), 0, -1); err != nil {
		return f, invalidParam("offset", err)
	}
	return f, nil
}

// parseTime accepts RFC 3339 instants and plain dates.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// parseInt parses a non-negative integer no greater than max (unbounded when max < 0).
func parseInt(s string, def, max int) (int, error) {
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 || (max >= 0 && n > max) {
		return 0, fmt.Errorf("out of range")
	}
	return n, nil
}

func parsePositiveFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be finite")
	}
	if f <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return f, nil
}

func invalidParam(name string, err error) error {
	return core.WrapError(core.ErrInvalidRequest, fmt.Errorf("query parameter %s: %w", name, err))
}
