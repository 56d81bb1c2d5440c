package domain

import (
	"fmt"
	"time"
)

// QuotaType groups endpoints that draw from the same usage pool.
// Each endpoint descriptor names exactly one quota type.
type QuotaType string

const (
	QuotaMessages  QuotaType = "messages"
	QuotaMedia     QuotaType = "media"
	QuotaReads     QuotaType = "reads"
	QuotaGroups    QuotaType = "groups"
	QuotaInstances QuotaType = "instances"
	QuotaWebhooks  QuotaType = "webhooks"
	QuotaProfile   QuotaType = "profile"
)

// QuotaTypes lists every known quota type.
var QuotaTypes = []QuotaType{
	QuotaMessages, QuotaMedia, QuotaReads, QuotaGroups,
	QuotaInstances, QuotaWebhooks, QuotaProfile,
}

// ParseQuotaType validates a raw quota type string from an external caller.
func ParseQuotaType(s string) (QuotaType, error) {
	for _, qt := range QuotaTypes {
		if string(qt) == s {
			return qt, nil
		}
	}
	return "", fmt.Errorf("unknown quota type %q: %w", s, ErrInvalidInput)
}

// Period is a quota accounting window. All windows are fixed, aligned to
// UTC calendar boundaries.
type Period string

const (
	PeriodHourly  Period = "hourly"
	PeriodDaily   Period = "daily"
	PeriodMonthly Period = "monthly"
)

// Periods lists all accounting windows in enforcement order. The ledger
// checks them in this order and reports the first one that rejects.
var Periods = []Period{PeriodHourly, PeriodDaily, PeriodMonthly}

// BucketStamp returns the identifier of the bucket that t falls into for the
// given period. Stamps are UTC so that all replicas agree on bucket identity.
func BucketStamp(p Period, t time.Time) string {
	t = t.UTC()
	switch p {
	case PeriodHourly:
		return t.Format("2006010215")
	case PeriodDaily:
		return t.Format("20060102")
	case PeriodMonthly:
		return t.Format("200601")
	default:
		return t.Format("20060102")
	}
}

// NextReset returns the instant the bucket containing t expires: the next
// UTC hour, day, or month boundary.
func NextReset(p Period, t time.Time) time.Time {
	t = t.UTC()
	switch p {
	case PeriodHourly:
		return t.Truncate(time.Hour).Add(time.Hour)
	case PeriodDaily:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	case PeriodMonthly:
		y, m, _ := t.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	default:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	}
}

// PeriodLimits holds a plan's limits for one quota type, one value per
// accounting window. A zero limit means the window is not enforced.
type PeriodLimits struct {
	Hourly  int64
	Daily   int64
	Monthly int64
}

// Limit returns the limit for period p.
func (l PeriodLimits) Limit(p Period) int64 {
	switch p {
	case PeriodHourly:
		return l.Hourly
	case PeriodDaily:
		return l.Daily
	case PeriodMonthly:
		return l.Monthly
	default:
		return 0
	}
}

// Plan maps each quota type to its period limits. Quota types absent from
// the plan are unmetered.
type Plan map[QuotaType]PeriodLimits

// DefaultPlan is the compiled fallback plan applied when no plan is
// configured for a tenant's tier.
func DefaultPlan() Plan {
	return Plan{
		QuotaMessages:  {Hourly: 500, Daily: 5000, Monthly: 100000},
		QuotaMedia:     {Hourly: 100, Daily: 1000, Monthly: 20000},
		QuotaReads:     {Hourly: 2000, Daily: 20000, Monthly: 400000},
		QuotaGroups:    {Hourly: 50, Daily: 500, Monthly: 10000},
		QuotaInstances: {Hourly: 30, Daily: 200, Monthly: 2000},
		QuotaWebhooks:  {Hourly: 100, Daily: 500, Monthly: 5000},
		QuotaProfile:   {Hourly: 200, Daily: 2000, Monthly: 20000},
	}
}

// QuotaKey builds the backing-store key for one tenant/type/period bucket.
func QuotaKey(tenantID string, qt QuotaType, p Period, t time.Time) string {
	return fmt.Sprintf("quota:%s:%s:%s:%s", tenantID, qt, p, BucketStamp(p, t))
}
