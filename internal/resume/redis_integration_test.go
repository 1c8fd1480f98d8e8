//go:build integration

package resume_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"uk-eta-backend/internal/resume"
	"uk-eta-backend/internal/store"
	"uk-eta-backend/internal/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *resume.RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.T().Cleanup(s.redis.Terminate)
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	s.store = resume.NewRedisStore(s.redis.Client, resume.WithRedisClock(func() time.Time { return now }))
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	in := snapshot("tok-redis")
	s.Require().NoError(s.store.Save(ctx, in))

	out, err := s.store.Get(ctx, "tok-redis")
	s.Require().NoError(err)
	s.Equal(in.Applicants, out.Applicants)
	s.Equal(in.Email, out.Email)
	s.Equal(in.Step, out.Step)
	s.True(in.ExpiresAt.Equal(out.ExpiresAt))

	ttl, err := s.redis.Client.TTL(ctx, "eta:resume:tok-redis").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 30*24*time.Hour)
}

func (s *RedisStoreSuite) TestMissingAndDelete() {
	ctx := context.Background()
	_, err := s.store.Get(ctx, "nope")
	s.ErrorIs(err, store.ErrNotFound)

	s.Require().NoError(s.store.Save(ctx, snapshot("tok-del")))
	s.Require().NoError(s.store.Delete(ctx, "tok-del"))
	_, err = s.store.Get(ctx, "tok-del")
	s.ErrorIs(err, store.ErrNotFound)
}
