package booking_test

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trevio/booking-engine/booking"
)

func TestDateRange_Overlaps(t *testing.T) {
	july := dates("2024-07-01", "2024-07-07")

	tests := []struct {
		name  string
		other booking.DateRange
		want  bool
	}{
		{"same range", july, true},
		{"starts inside", dates("2024-07-05", "2024-07-10"), true},
		{"ends inside", dates("2024-06-25", "2024-07-02"), true},
		{"contains", dates("2024-06-01", "2024-08-01"), true},
		{"contained", dates("2024-07-03", "2024-07-04"), true},
		{"touches end day", dates("2024-07-07", "2024-07-09"), true},
		{"touches start day", dates("2024-06-28", "2024-07-01"), true},
		{"day after", dates("2024-07-08", "2024-07-10"), false},
		{"day before", dates("2024-06-20", "2024-06-30"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, july.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(july), "overlap must be symmetric")
		})
	}
}

func TestDateRange_OverlapProperties(t *testing.T) {
	// GIVEN: random valid ranges within a year
	rng := rand.New(rand.NewSource(42))
	base := booking.NewDate(2024, time.January, 1)
	random := func() booking.DateRange {
		start := base.AddDays(rng.Intn(365))
		return booking.DateRange{Start: start, End: start.AddDays(rng.Intn(20))}
	}

	for i := 0; i < 500; i++ {
		a, b := random(), random()

		// THEN: overlap is reflexive and symmetric
		assert.True(t, a.Overlaps(a), "%s must overlap itself", a)
		assert.Equal(t, a.Overlaps(b), b.Overlaps(a), "%s vs %s", a, b)

		// AND: it agrees with a day-by-day intersection
		shared := false
		for d := a.Start; d.BeforeOrEqual(a.End); d = d.AddDays(1) {
			if b.Contains(d) {
				shared = true
				break
			}
		}
		assert.Equal(t, shared, a.Overlaps(b), "%s vs %s", a, b)
	}
}

func TestDateRange_Validate(t *testing.T) {
	_, err := booking.NewDateRange(booking.MustParseDate("2024-07-10"), booking.MustParseDate("2024-07-01"))
	assert.ErrorIs(t, err, booking.ErrInvalidPeriod)

	_, err = booking.NewDateRange(booking.Date{}, booking.MustParseDate("2024-07-01"))
	assert.ErrorIs(t, err, booking.ErrInvalidPeriod)

	r, err := booking.NewDateRange(booking.MustParseDate("2024-07-01"), booking.MustParseDate("2024-07-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Nights())

	assert.Equal(t, 6, dates("2024-07-01", "2024-07-07").Nights())
}

func TestParseDate(t *testing.T) {
	d, err := booking.ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.String())

	_, err = booking.ParseDate("2023-02-29")
	assert.Error(t, err)

	_, err = booking.ParseDate("07/01/2024")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	in := dates("2024-07-01", "2024-07-07")

	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"startDate":"2024-07-01","endDate":"2024-07-07"}`, string(b))

	var out booking.DateRange
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, in.Equal(out))
}
