package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

func TestUsageCheck_AnonymousIDRequired(t *testing.T) {
	e := newTestEnv(t)

	st, err := e.usage.Check(context.Background(), Caller{}, false)
	require.NoError(t, err)
	assert.False(t, st.CanSend)
	assert.Equal(t, "Anonymous ID required for usage tracking", st.Error)

	err = e.usage.Consume(context.Background(), Caller{}, false)
	var ve *common.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestUsageCheck_UserNotFound(t *testing.T) {
	e := newTestEnv(t)

	st, err := e.usage.Check(context.Background(), callerFor("ghost"), false)
	require.NoError(t, err)
	assert.False(t, st.CanSend)
	assert.Equal(t, "User not found", st.Error)

	assert.ErrorIs(t, e.usage.Consume(context.Background(), callerFor("ghost"), false), common.ErrorUserNotFound)
}

func TestUsageConsume_AnonymousLimit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := Caller{AnonymousID: "guest-1"}

	for i := 0; i < common.NonAuthDailyMessageLimit; i++ {
		require.NoError(t, e.usage.Consume(ctx, c, false), "message %d", i+1)
	}

	err := e.usage.Consume(ctx, c, false)
	var le *common.UsageLimitError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, int64(common.NonAuthDailyMessageLimit), le.Limit)
	assert.Equal(t, common.LimitReachedCode, le.Code())

	st, err := e.usage.Check(ctx, c, false)
	require.NoError(t, err)
	assert.Equal(t, UsageStatus{CanSend: false, Remaining: 0, Limit: 5, Count: 5}, st)

	// Another guest has its own counter.
	st, err = e.usage.Check(ctx, Caller{AnonymousID: "guest-2"}, false)
	require.NoError(t, err)
	assert.True(t, st.CanSend)
	assert.Equal(t, int64(5), st.Remaining)
}

func TestUsage_AnonymousHasNoProQuota(t *testing.T) {
	e := newTestEnv(t)
	c := Caller{AnonymousID: "guest-1"}

	st, err := e.usage.Check(context.Background(), c, true)
	require.NoError(t, err)
	assert.Equal(t, UsageStatus{}, st)

	err = e.usage.Consume(context.Background(), c, true)
	var le *common.UsageLimitError
	require.True(t, errors.As(err, &le))
	assert.True(t, le.Pro)
}

func TestUsage_UserCountersAndTouch(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, c := e.user(t, "ext-1")

	require.NoError(t, e.usage.Consume(ctx, c, false))
	require.NoError(t, e.usage.Increment(ctx, c, false))
	require.NoError(t, e.usage.Consume(ctx, c, true))

	got, err := e.store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.DailyMessageCount)
	assert.Equal(t, int64(1), got.DailyProMessageCount)
	// Pro messages do not count toward the lifetime total.
	assert.Equal(t, int64(2), got.MessageCount)
	assert.NotZero(t, got.LastActiveAt)

	st, err := e.usage.Check(ctx, c, false)
	require.NoError(t, err)
	assert.Equal(t, int64(common.AuthDailyMessageLimit), st.Limit)
	assert.Equal(t, int64(common.AuthDailyMessageLimit-2), st.Remaining)

	st, err = e.usage.Check(ctx, c, true)
	require.NoError(t, err)
	assert.Equal(t, int64(common.DailyLimitProModels), st.Limit)
	assert.Equal(t, int64(1), st.Count)
}

func TestUsage_NewDayResets(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := Caller{AnonymousID: "guest-1"}

	for i := 0; i < common.NonAuthDailyMessageLimit; i++ {
		require.NoError(t, e.usage.Consume(ctx, c, false))
	}
	require.Error(t, e.usage.Consume(ctx, c, false))

	e.usage.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	st, err := e.usage.Check(ctx, c, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.Count)
	assert.NoError(t, e.usage.Consume(ctx, c, false))
}

func TestUsage_AnonymousFlaggedUserGetsGuestLimit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	_, err := e.users.CreateOrUpdate(ctx, store.UserProfile{ExternalID: "anon-user", Anonymous: true})
	require.NoError(t, err)

	st, err := e.usage.Check(ctx, callerFor("anon-user"), false)
	require.NoError(t, err)
	assert.Equal(t, int64(common.NonAuthDailyMessageLimit), st.Limit)
}

func TestUsage_UserAtLimitCannotSend(t *testing.T) {
	tests := []struct {
		name  string
		pro   bool
		limit int64
	}{
		{"regular", false, common.AuthDailyMessageLimit},
		{"pro", true, common.DailyLimitProModels},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			ctx := context.Background()
			_, c := e.user(t, "ext-"+tt.name)

			for i := int64(0); i < tt.limit; i++ {
				require.NoError(t, e.usage.Increment(ctx, c, tt.pro))
			}

			st, err := e.usage.Check(ctx, c, tt.pro)
			require.NoError(t, err)
			assert.False(t, st.CanSend)
			assert.Equal(t, int64(0), st.Remaining)
			assert.Equal(t, tt.limit, st.Count)

			err = e.usage.Consume(ctx, c, tt.pro)
			var le *common.UsageLimitError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tt.limit, le.Limit)
			assert.Equal(t, tt.pro, le.Pro)

			// The other quota is untouched.
			st, err = e.usage.Check(ctx, c, !tt.pro)
			require.NoError(t, err)
			assert.True(t, st.CanSend)
		})
	}
}

func TestUsageConsume_ConcurrentCallersNeverExceedLimit(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	c := Caller{AnonymousID: "guest-race"}

	var (
		wg       sync.WaitGroup
		admitted atomic.Int64
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if e.usage.Consume(ctx, c, false) == nil {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(common.NonAuthDailyMessageLimit), admitted.Load())
}

func TestRateLimits(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	rl, err := e.usage.RateLimits(ctx, Caller{})
	require.NoError(t, err)
	assert.Equal(t, RateLimits{DailyLimit: 5, Remaining: 5}, rl)

	c := Caller{AnonymousID: "guest-1"}
	for i := 0; i < 3; i++ {
		require.NoError(t, e.usage.Consume(ctx, c, false))
	}
	rl, err = e.usage.RateLimits(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, RateLimits{DailyCount: 3, DailyLimit: 5, Remaining: 2, Alert: true}, rl)

	_, uc := e.user(t, "ext-1")
	rl, err = e.usage.RateLimits(ctx, uc)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), rl.DailyLimit)
	assert.Equal(t, int64(500), rl.RemainingPro)
	assert.False(t, rl.Alert)

	_, err = e.usage.RateLimits(ctx, callerFor("ghost"))
	assert.ErrorIs(t, err, common.ErrorUserNotFound)
}

func TestValidateModelAccess(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	u, c := e.user(t, "ext-1")

	assert.NoError(t, e.usage.ValidateModelAccess(ctx, Caller{AnonymousID: "g"}, "", "gpt-4.1-nano"))

	err := e.usage.ValidateModelAccess(ctx, Caller{AnonymousID: "g"}, "", "gpt-4.1")
	var ae *common.AccessError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "This model requires authentication. Please sign in to access more models.", ae.Message)

	assert.NoError(t, e.usage.ValidateModelAccess(ctx, c, u.ID, "mistral-large-latest"))
	assert.NoError(t, e.usage.ValidateModelAccess(ctx, c, u.ID, "llama3.2:latest"))

	err = e.usage.ValidateModelAccess(ctx, c, u.ID, "claude-sonnet-4-5-20250929")
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "This model requires an API key for anthropic. Please add your API key in settings or use a free model.", ae.Message)

	_, err = e.keys.Upsert(ctx, u.ID, "anthropic", "sk-ant-user")
	require.NoError(t, err)
	assert.NoError(t, e.usage.ValidateModelAccess(ctx, c, u.ID, "claude-sonnet-4-5-20250929"))
}

func TestRedisCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()
	counter := NewRedisCounter(rdb)
	key := store.UsageKey{Kind: store.UsageAnonymous, ID: "guest-1"}
	day := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC).UnixMilli()

	n, err := counter.Count(ctx, key, day)
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 0; i < 2; i++ {
		ok, err := counter.Consume(ctx, key, 2, day)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := counter.Consume(ctx, key, 2, day)
	require.NoError(t, err)
	assert.False(t, ok)

	redisKey := "usage:anonymous:guest-1:2025-03-14"
	got, err := mr.Get(redisKey)
	require.NoError(t, err)
	assert.Equal(t, "2", got)
	assert.Equal(t, redisCounterTTL, mr.TTL(redisKey))

	require.NoError(t, counter.Increment(ctx, key, day))
	n, err = counter.Count(ctx, key, day)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// The next day is a different key.
	next := day + 24*time.Hour.Milliseconds()
	n, err = counter.Count(ctx, key, next)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUsageService_WithRedisCounter(t *testing.T) {
	e := newTestEnv(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	svc := NewUsageService(e.store, NewRedisCounter(rdb), e.keys, e.usage.log)
	ctx := context.Background()
	u, c := e.user(t, "ext-1")

	require.NoError(t, svc.Consume(ctx, c, false))
	st, err := svc.Check(ctx, c, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Count)

	// The lifetime count still lives on the user row.
	got, err := e.store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.MessageCount)
	assert.Zero(t, got.DailyMessageCount)
}
