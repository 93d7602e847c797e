package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateMillis(t *testing.T) {
	ms := func(y int, mo time.Month, d, h, mi, s, msec int) int64 {
		return time.Date(y, mo, d, h, mi, s, msec*int(time.Millisecond), time.UTC).UnixMilli()
	}
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"2026-03-05", ms(2026, 3, 5, 0, 0, 0, 0), true},
		{"2026-03-05T10:00:00Z", ms(2026, 3, 5, 10, 0, 0, 0), true},
		{"2026-03-05T10:00Z", ms(2026, 3, 5, 10, 0, 0, 0), true},
		{"2026-03-05 10:00:00", ms(2026, 3, 5, 10, 0, 0, 0), true},
		{"2026-03-05T12:00:00+05:00", ms(2026, 3, 5, 7, 0, 0, 0), true},
		{"2026-03-05T01:00:00-02:30", ms(2026, 3, 5, 3, 30, 0, 0), true},
		{"2026-03-05T10:00:00.1234Z", ms(2026, 3, 5, 10, 0, 0, 123), true},
		{"2026-03-05T10:00:00.9996Z", ms(2026, 3, 5, 10, 0, 1, 0), true},
		{"2026-03-05T10:00:00.000000000Z", ms(2026, 3, 5, 10, 0, 0, 0), true},
		{"2026-02-30", ms(2026, 3, 2, 0, 0, 0, 0), true},
		{"soon", 0, false},
		{"2026-13-01", 0, false},
		{"2026-03-05x", 0, false},
		{"2026-03-05T25:00", 0, false},
		{"2026-03-05T10:00:00+5", 0, false},
		{"2026/03/05", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := dateMillis(tc.in)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}
