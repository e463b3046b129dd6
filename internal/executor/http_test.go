package executor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minisource/jobengine/internal/executor"
	"github.com/minisource/jobengine/internal/models"
)

func newJobData(t *testing.T, d executor.HTTPJobData) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(d)
	require.NoError(t, err)
	return b
}

func TestHTTPExecutorSuccessStoresResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "j1", r.Header.Get("X-Scheduler-Job-Id"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	e := executor.NewHTTPExecutor(5 * time.Second)
	job := &models.JobDetail{Name: "j1", Group: "DEFAULT", JobData: newJobData(t, executor.HTTPJobData{Endpoint: srv.URL})}
	jec := models.NewJobExecutionContext(job, "t1", "DEFAULT", time.Now(), time.Now())

	err := e.Execute(context.Background(), jec)
	require.NoError(t, err)

	result, ok := jec.Result().(executor.ExecutionResult)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "ok", string(result.Body))
}

func TestHTTPExecutorRetriesOn5xxThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	e := executor.NewHTTPExecutor(5 * time.Second)
	job := &models.JobDetail{Name: "j1", Group: "DEFAULT", JobData: newJobData(t, executor.HTTPJobData{
		Endpoint: srv.URL, MaxRetries: 3,
	})}
	jec := models.NewJobExecutionContext(job, "t1", "DEFAULT", time.Now(), time.Now())

	err := e.Execute(context.Background(), jec)
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestHTTPExecutorDoesNotRetryOn4xx(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	e := executor.NewHTTPExecutor(5 * time.Second)
	job := &models.JobDetail{Name: "j1", Group: "DEFAULT", JobData: newJobData(t, executor.HTTPJobData{
		Endpoint: srv.URL, MaxRetries: 3,
	})}
	jec := models.NewJobExecutionContext(job, "t1", "DEFAULT", time.Now(), time.Now())

	err := e.Execute(context.Background(), jec)
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestJobFactoryResolvesHTTPType(t *testing.T) {
	factory := executor.NewJobFactory(5 * time.Second)

	job, err := factory.NewJob(&models.JobDetail{Name: "j1", Group: "DEFAULT", Type: models.JobTypeHTTP})
	require.NoError(t, err)
	assert.NotNil(t, job)

	_, err = factory.NewJob(&models.JobDetail{Name: "j2", Group: "DEFAULT", Type: "unsupported"})
	assert.Error(t, err)
}
