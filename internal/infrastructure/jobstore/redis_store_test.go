package jobstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/tender-portal/internal/notification"
	"github.com/ignatzorin/tender-portal/internal/pkg/apperror"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleReport() notification.Report {
	finished := time.Date(2026, 3, 1, 10, 0, 5, 0, time.UTC)
	return notification.Report{
		JobID:      uuid.New(),
		State:      notification.JobStateComplete,
		TemplateID: notification.TemplateAwarded,
		CreatedBy:  uuid.New(),
		Total:      2,
		Successful: 1,
		Failed:     1,
		Results: []notification.RecipientResult{
			{RecipientID: uuid.New(), Address: "a@example.com", Status: notification.ResultSent, Timestamp: finished},
			{RecipientID: uuid.New(), Status: notification.ResultFailed, Error: notification.ReasonNoEmail, Timestamp: finished},
		},
		CreatedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
	}
}

func TestRedisStore_SaveAndGet(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewRedisStore(client, time.Hour)
	report := sampleReport()

	require.NoError(t, store.Save(context.Background(), report))

	got, err := store.Get(context.Background(), report.JobID)
	require.NoError(t, err)
	assert.Equal(t, report.JobID, got.JobID)
	assert.Equal(t, report.State, got.State)
	assert.Equal(t, report.Failed, got.Failed)
	assert.Equal(t, report.Results, got.Results)
	assert.Equal(t, report.FailedRecipientIDs(), got.FailedRecipientIDs())

	assert.True(t, mr.Exists("notification:job:"+report.JobID.String()))
	assert.Equal(t, time.Hour, mr.TTL("notification:job:"+report.JobID.String()))
}

func TestRedisStore_Expired(t *testing.T) {
	mr, client := setupRedis(t)
	store := NewRedisStore(client, time.Minute)
	report := sampleReport()

	require.NoError(t, store.Save(context.Background(), report))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(context.Background(), report.JobID)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestRedisStore_NotFound(t *testing.T) {
	_, client := setupRedis(t)
	store := NewRedisStore(client, 0)

	_, err := store.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrJobNotFound)
}

func TestRedisStore_Unavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, time.Hour)
	mr.Close()

	err = store.Save(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Equal(t, apperror.ErrCodeInternal, apperror.CodeOf(err))
}

func TestMemoryStore_SaveAndGet(t *testing.T) {
	store := NewMemoryStore()
	report := sampleReport()

	require.NoError(t, store.Save(context.Background(), report))
	got, err := store.Get(context.Background(), report.JobID)
	require.NoError(t, err)
	assert.Equal(t, report, *got)

	got.Results[0].Status = notification.ResultFailed
	again, err := store.Get(context.Background(), report.JobID)
	require.NoError(t, err)
	assert.Equal(t, notification.ResultSent, again.Results[0].Status)

	_, err = store.Get(context.Background(), uuid.New())
	assert.True(t, apperror.IsNotFound(err))
}
