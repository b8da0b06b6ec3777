package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"krishi-mitra-backend/internal/config"
	"krishi-mitra-backend/models"
	"krishi-mitra-backend/services"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	report *models.IngestReport
	err    error
	calls  int
}

func (f *fakeIngester) Ingest(context.Context) (*models.IngestReport, error) {
	f.calls++
	return f.report, f.err
}

func TestNewIngestCorpusTask(t *testing.T) {
	task, err := NewIngestCorpusTask("cron")
	require.NoError(t, err)
	assert.Equal(t, TaskIngestCorpus, task.Type())

	var payload IngestCorpusPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "cron", payload.Reason)
	assert.False(t, payload.RequestedAt.IsZero())
}

func TestProcessIngestCorpusSuccess(t *testing.T) {
	ing := &fakeIngester{report: &models.IngestReport{RunID: "r1", TotalChunks: 12}}
	task, err := NewIngestCorpusTask("cli")
	require.NoError(t, err)

	assert.NoError(t, NewTaskProcessor(ing).ProcessIngestCorpus(context.Background(), task))
	assert.Equal(t, 1, ing.calls)
}

func TestProcessIngestCorpusEmptyCorpusSkipsRetry(t *testing.T) {
	ing := &fakeIngester{report: &models.IngestReport{}, err: services.ErrEmptyCorpus}
	task, err := NewIngestCorpusTask("cli")
	require.NoError(t, err)

	err = NewTaskProcessor(ing).ProcessIngestCorpus(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestProcessIngestCorpusRetriesOtherErrors(t *testing.T) {
	ing := &fakeIngester{err: services.ErrIngestionInProgress}
	task, err := NewIngestCorpusTask("cron")
	require.NoError(t, err)

	err = NewTaskProcessor(ing).ProcessIngestCorpus(context.Background(), task)
	assert.ErrorIs(t, err, services.ErrIngestionInProgress)
	assert.False(t, errors.Is(err, asynq.SkipRetry))
}

func TestProcessIngestCorpusBadPayload(t *testing.T) {
	ing := &fakeIngester{}
	err := NewTaskProcessor(ing).ProcessIngestCorpus(context.Background(), asynq.NewTask(TaskIngestCorpus, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 0, ing.calls)
}

func TestRedisConnOpt(t *testing.T) {
	opt, err := RedisConnOpt(&config.Config{RedisURL: "redis://:secret@cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, "secret", opt.Password)
	assert.Equal(t, 2, opt.DB)

	_, err = RedisConnOpt(&config.Config{})
	assert.Error(t, err)
}
