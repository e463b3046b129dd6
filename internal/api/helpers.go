package api

import (
	"errors"

	"github.com/minisource/jobengine/internal/engine"
	"github.com/minisource/jobengine/internal/store"
)

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound) || errors.Is(err, engine.ErrCalendarNotFound)
}

func isConflict(err error) bool {
	return errors.Is(err, store.ErrAlreadyExists) ||
		errors.Is(err, engine.ErrObjectAlreadyExists) ||
		errors.Is(err, engine.ErrDeleteConflict) ||
		errors.Is(err, engine.ErrInvalidTriggerBinding)
}

// pathGroup defaults an empty path/query group segment to DEFAULT, matching
// SchedulerFacade's own canonicalGroup behavior so callers see the same
// group whichever layer applies the default.
func pathGroup(g string) string {
	if g == "" {
		return "DEFAULT"
	}
	return g
}
