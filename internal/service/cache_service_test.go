package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/models"
	appErrors "github.com/noah-isme/course-registry-api/pkg/errors"
)

type mapCacheRepo struct {
	entries map[string][]byte
	deleted []string
}

func newMapCacheRepo() *mapCacheRepo {
	return &mapCacheRepo{entries: make(map[string][]byte)}
}

func (m *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mapCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	delete(m.entries, pattern)
	return nil
}

func TestCacheServiceRoundTrip(t *testing.T) {
	repo := newMapCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	snapshot := models.ScheduleSnapshot{Student: models.User{ID: "stu-1"}}
	require.NoError(t, svc.Set(context.Background(), "schedule:stu-1", snapshot, 0))

	var cached models.ScheduleSnapshot
	hit, err := svc.Get(context.Background(), "schedule:stu-1", &cached)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "stu-1", cached.Student.ID)
}

func TestCacheServiceMissIsNotAnError(t *testing.T) {
	svc := NewCacheService(newMapCacheRepo(), nil, time.Minute, zap.NewNop(), true)

	var cached models.ScheduleSnapshot
	hit, err := svc.Get(context.Background(), "schedule:ghost", &cached)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := newMapCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), false)

	require.NoError(t, svc.Set(context.Background(), "schedule:stu-1", struct{}{}, 0))
	assert.Empty(t, repo.entries)

	var nilSvc *CacheService
	assert.False(t, nilSvc.Enabled())
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMapCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, zap.NewNop(), true)

	require.NoError(t, svc.Set(context.Background(), "schedule:stu-1", struct{}{}, 0))
	require.NoError(t, svc.Invalidate(context.Background(), "schedule:stu-1"))
	assert.Contains(t, repo.deleted, "schedule:stu-1")
	assert.Empty(t, repo.entries)
}
