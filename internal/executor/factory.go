package executor

import (
	"fmt"
	"time"

	"github.com/minisource/jobengine/internal/engine"
	"github.com/minisource/jobengine/internal/models"
)

// NewJobFactory builds the engine.JobFactory this repo ships by default:
// every JobDetail.Type resolves to a shared HTTPExecutor instance. Hosts
// that register additional Job implementations supply their own
// engine.JobFactory instead of this one.
func NewJobFactory(defaultTimeout time.Duration) engine.JobFactory {
	http := NewHTTPExecutor(defaultTimeout)
	return engine.JobFactoryFunc(func(detail *models.JobDetail) (engine.Job, error) {
		switch detail.Type {
		case models.JobTypeHTTP, "":
			return http, nil
		default:
			return nil, fmt.Errorf("executor: unknown job type %q", detail.Type)
		}
	})
}
