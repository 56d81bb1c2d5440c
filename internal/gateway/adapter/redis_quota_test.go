package adapter_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaygate/relaygate/internal/domain"
	"github.com/relaygate/relaygate/internal/domain/domaintest"
	"github.com/relaygate/relaygate/internal/gateway/adapter"
	redisclient "github.com/relaygate/relaygate/internal/redis"
)

func newTestLedger(t *testing.T) (*adapter.QuotaLedger, *miniredis.Miniredis, *domaintest.FakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redisclient.NewClient(redisclient.Config{
		Addr:         mr.Addr(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
	t.Cleanup(func() {
		require.NoError(t, client.Close())
	})

	clock := domaintest.NewFakeClock(time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC))
	return adapter.NewQuotaLedger(client.RDB, clock), mr, clock
}

func TestQuotaLedger_CheckAndReserve(t *testing.T) {
	ctx := context.Background()
	limits := domain.PeriodLimits{Hourly: 5, Daily: 50, Monthly: 500}

	t.Run("admits requests under every limit", func(t *testing.T) {
		ledger, _, _ := newTestLedger(t)

		d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, limits)

		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, domain.PeriodHourly, d.Period, "hourly window has the least headroom")
		assert.Equal(t, int64(1), d.Used)
		assert.Equal(t, int64(4), d.Remaining)
		assert.Equal(t, int64(5), d.Limit)
	})

	t.Run("used equals admitted count times weight", func(t *testing.T) {
		ledger, mr, _ := newTestLedger(t)
		wide := domain.PeriodLimits{Hourly: 100, Daily: 100, Monthly: 100}

		for i := 0; i < 4; i++ {
			d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMedia, 3, wide)
			require.NoError(t, err)
			require.True(t, d.Allowed)
		}

		key := domain.QuotaKey("t1", domain.QuotaMedia, domain.PeriodHourly,
			time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, "12", mustGet(t, mr, key))
	})

	t.Run("rejects at the limit and reports the offending window", func(t *testing.T) {
		ledger, _, _ := newTestLedger(t)

		for i := 0; i < 5; i++ {
			d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, limits)
			require.NoError(t, err)
			require.True(t, d.Allowed, "request %d should be admitted", i+1)
		}

		d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, limits)

		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, domain.PeriodHourly, d.Period)
		assert.Equal(t, int64(5), d.Used)
		assert.Equal(t, int64(0), d.Remaining)
		assert.Equal(t, int64(5), d.Limit)
		assert.Equal(t, time.Date(2026, time.March, 7, 13, 0, 0, 0, time.UTC), d.ResetAt)
	})

	t.Run("rejection leaves every counter unchanged", func(t *testing.T) {
		ledger, mr, _ := newTestLedger(t)
		tight := domain.PeriodLimits{Hourly: 100, Daily: 2, Monthly: 100}
		now := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)

		for i := 0; i < 2; i++ {
			d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaGroups, 1, tight)
			require.NoError(t, err)
			require.True(t, d.Allowed)
		}

		d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaGroups, 1, tight)
		require.NoError(t, err)
		require.False(t, d.Allowed)
		assert.Equal(t, domain.PeriodDaily, d.Period, "daily window rejected first")

		// The hourly increment made in the rejected call must be rolled back.
		hourlyKey := domain.QuotaKey("t1", domain.QuotaGroups, domain.PeriodHourly, now)
		dailyKey := domain.QuotaKey("t1", domain.QuotaGroups, domain.PeriodDaily, now)
		assert.Equal(t, "2", mustGet(t, mr, hourlyKey))
		assert.Equal(t, "2", mustGet(t, mr, dailyKey))
	})

	t.Run("weight heavier than remaining is rejected whole", func(t *testing.T) {
		ledger, mr, _ := newTestLedger(t)
		small := domain.PeriodLimits{Hourly: 5}

		d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMedia, 4, small)
		require.NoError(t, err)
		require.True(t, d.Allowed)

		d, err = ledger.CheckAndReserve(ctx, "t1", domain.QuotaMedia, 2, small)
		require.NoError(t, err)
		assert.False(t, d.Allowed, "partial admission is never allowed")

		key := domain.QuotaKey("t1", domain.QuotaMedia, domain.PeriodHourly,
			time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, "4", mustGet(t, mr, key))
	})

	t.Run("sets the bucket TTL to the period boundary", func(t *testing.T) {
		ledger, mr, _ := newTestLedger(t)

		// Clock is at 12:00:00 exactly: the hourly bucket has 3600s left.
		_, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, limits)
		require.NoError(t, err)

		key := domain.QuotaKey("t1", domain.QuotaMessages, domain.PeriodHourly,
			time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, 3600*time.Second, mr.TTL(key))
	})

	t.Run("zero limits are unmetered", func(t *testing.T) {
		ledger, _, _ := newTestLedger(t)

		d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaReads, 1, domain.PeriodLimits{})

		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("tenants are isolated", func(t *testing.T) {
		ledger, _, _ := newTestLedger(t)
		one := domain.PeriodLimits{Hourly: 1}

		d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, one)
		require.NoError(t, err)
		require.True(t, d.Allowed)

		d, err = ledger.CheckAndReserve(ctx, "t2", domain.QuotaMessages, 1, one)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "another tenant's counters are independent")
	})

	t.Run("new window starts a fresh bucket", func(t *testing.T) {
		ledger, _, clock := newTestLedger(t)
		one := domain.PeriodLimits{Hourly: 1}

		d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, one)
		require.NoError(t, err)
		require.True(t, d.Allowed)

		d, err = ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, one)
		require.NoError(t, err)
		require.False(t, d.Allowed)

		clock.Advance(time.Hour)

		d, err = ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, one)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "the next hour gets its own bucket")
	})

	t.Run("fails closed when Redis is unavailable", func(t *testing.T) {
		ledger, mr, _ := newTestLedger(t)
		mr.Close()

		_, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, limits)

		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})
}

// TestQuotaLedger_ConcurrentAdmission drives M concurrent reservations
// against one counter with limit L and asserts exactly min(M, L) are
// admitted — no over- or under-admission.
func TestQuotaLedger_ConcurrentAdmission(t *testing.T) {
	ledger, _, _ := newTestLedger(t)
	ctx := context.Background()

	const (
		workers = 25
		limit   = 10
	)
	limits := domain.PeriodLimits{Hourly: limit}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, limits)
			require.NoError(t, err)
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, limit, allowed)
}

func TestQuotaLedger_Usage(t *testing.T) {
	ctx := context.Background()
	limits := domain.PeriodLimits{Hourly: 5, Daily: 50, Monthly: 500}

	t.Run("reports used and reset per window", func(t *testing.T) {
		ledger, _, _ := newTestLedger(t)

		for i := 0; i < 3; i++ {
			_, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, limits)
			require.NoError(t, err)
		}

		usage, err := ledger.Usage(ctx, "t1", domain.QuotaMessages, limits)

		require.NoError(t, err)
		require.Len(t, usage, 3)
		assert.Equal(t, domain.PeriodHourly, usage[0].Period)
		assert.Equal(t, int64(3), usage[0].Used)
		assert.Equal(t, int64(5), usage[0].Limit)
		assert.Equal(t, time.Date(2026, time.March, 7, 13, 0, 0, 0, time.UTC), usage[0].ResetAt)
	})

	t.Run("untouched buckets read as zero", func(t *testing.T) {
		ledger, _, _ := newTestLedger(t)

		usage, err := ledger.Usage(ctx, "t9", domain.QuotaMessages, limits)

		require.NoError(t, err)
		require.Len(t, usage, 3)
		for _, u := range usage {
			assert.Zero(t, u.Used)
		}
	})

	t.Run("reading never charges", func(t *testing.T) {
		ledger, mr, _ := newTestLedger(t)

		_, err := ledger.CheckAndReserve(ctx, "t1", domain.QuotaMessages, 1, limits)
		require.NoError(t, err)
		_, err = ledger.Usage(ctx, "t1", domain.QuotaMessages, limits)
		require.NoError(t, err)

		key := domain.QuotaKey("t1", domain.QuotaMessages, domain.PeriodHourly,
			time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC))
		assert.Equal(t, "1", mustGet(t, mr, key))
	})
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	val, err := mr.Get(key)
	require.NoError(t, err)
	return val
}
