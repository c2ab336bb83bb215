package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"smart-led-controller/backend/internal/control"
	"smart-led-controller/backend/internal/reading"
	"smart-led-controller/backend/internal/services"
	"smart-led-controller/backend/internal/store"
)

const dateLayout = "2006-01-02"

// queryInt reads a positive integer query parameter. Missing, malformed and
// non-positive values fall back to def.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// queryDate reads a YYYY-MM-DD or RFC 3339 query parameter in loc. ok is false when
// the parameter is absent.
func queryDate(r *http.Request, name string, loc *time.Location) (t time.Time, ok bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		return t, true, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), true, nil
	}
	return time.Time{}, false, NewError(http.StatusBadRequest, fmt.Sprintf("Invalid date for '%s', expected YYYY-MM-DD", name))
}

// serviceError maps domain errors to HTTP errors. Failed reads keep their cause;
// anything unrecognised is an internal error.
func serviceError(err error) error {
	var verr *reading.ValidationError
	var qerr *store.QueryError

	switch {
	case errors.As(err, &verr):
		return NewValidationError(verr.Fields)
	case errors.Is(err, control.ErrUnknownCommand):
		return NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, control.ErrInvalidCommand):
		return NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrLoopStopped):
		return NewError(http.StatusServiceUnavailable, "Controller is not running")
	case errors.Is(err, store.ErrStoreUnavailable):
		return NewError(http.StatusServiceUnavailable, "Store unavailable")
	case errors.As(err, &qerr):
		return NewError(http.StatusInternalServerError, qerr.Error())
	default:
		return err
	}
}
