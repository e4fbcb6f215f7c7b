package clock

import (
	"testing"
	"time"
	_ "time/tzdata"
)

func TestMondayIndex(t *testing.T) {
	tests := []struct {
		in   time.Weekday
		want int
	}{
		{time.Monday, 0},
		{time.Tuesday, 1},
		{time.Wednesday, 2},
		{time.Thursday, 3},
		{time.Friday, 4},
		{time.Saturday, 5},
		{time.Sunday, 6},
	}
	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			if got := MondayIndex(tt.in); got != tt.want {
				t.Errorf("MondayIndex(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestIn(t *testing.T) {
	// 2024-01-01 was a Monday.
	utc := time.Date(2024, time.January, 1, 23, 30, 15, 0, time.UTC)

	t.Run("utc", func(t *testing.T) {
		got := In(utc, time.UTC)
		want := Local{Weekday: 0, Hour: 23, Minute: 30, Second: 15}
		if got != want {
			t.Errorf("In() = %+v, want %+v", got, want)
		}
	})

	t.Run("nil location is utc", func(t *testing.T) {
		if got := In(utc, nil); got.Hour != 23 {
			t.Errorf("In(nil).Hour = %d, want 23", got.Hour)
		}
	})

	t.Run("zone crosses midnight", func(t *testing.T) {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		if err != nil {
			t.Fatalf("LoadLocation() error = %v", err)
		}
		got := In(utc, tokyo)
		want := Local{Weekday: 1, Hour: 8, Minute: 30, Second: 15}
		if got != want {
			t.Errorf("In(Tokyo) = %+v, want %+v", got, want)
		}
	})
}

func TestHourWithin(t *testing.T) {
	tests := []struct {
		hour int
		want bool
	}{
		{6, false},
		{7, true},
		{15, true},
		{22, true},
		{23, false},
	}
	for _, tt := range tests {
		ts := time.Date(2024, time.March, 5, tt.hour, 59, 0, 0, time.UTC)
		if got := HourWithin(ts, time.UTC, 7, 22); got != tt.want {
			t.Errorf("HourWithin(%02d:59) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}
