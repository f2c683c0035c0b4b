package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "empty", value: "", want: 0, wantOK: false},
		{name: "delta seconds", value: "7", want: 7 * time.Second, wantOK: true},
		{name: "fractional seconds", value: "1.5", want: 1500 * time.Millisecond, wantOK: true},
		{name: "negative clamps to zero", value: "-3", want: 0, wantOK: true},
		{name: "http date", value: now.Add(30 * time.Second).Format(http.TimeFormat), want: 30 * time.Second, wantOK: true},
		{name: "past http date", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0, wantOK: true},
		{name: "garbage", value: "soon", want: 0, wantOK: false},
		{name: "infinity", value: "Inf", want: 0, wantOK: false},
		{name: "nan", value: "NaN", want: 0, wantOK: false},
		{name: "float overflow", value: "1e400", want: 0, wantOK: false},
		{name: "huge float caps", value: "1e300", want: MaxRetryAfter, wantOK: true},
		{name: "huge integer caps", value: "99999999999", want: MaxRetryAfter, wantOK: true},
		{name: "far future http date caps", value: "Fri, 31 Dec 9999 23:59:59 GMT", want: MaxRetryAfter, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.value, now)
			if ok != tt.wantOK {
				t.Errorf("ParseRetryAfter(%q) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestFromHeaders(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	h := http.Header{}
	h.Set(HeaderRetryAfter, "10")
	h.Set(HeaderLimit, "350")
	h.Set(HeaderRemaining, "12")
	h.Set(HeaderReset, "2024-05-01T12:01:00Z")
	h.Set(HeaderNearLimit, "true")

	s := FromHeaders(h, now)

	if s.RetryAfter != 10*time.Second {
		t.Errorf("RetryAfter = %v, want 10s", s.RetryAfter)
	}
	if s.Limit != 350 || s.Remaining != 12 {
		t.Errorf("Limit/Remaining = %d/%d, want 350/12", s.Limit, s.Remaining)
	}
	if !s.ResetAt.Equal(now.Add(time.Minute)) {
		t.Errorf("ResetAt = %v, want %v", s.ResetAt, now.Add(time.Minute))
	}
	if !s.NearLimit {
		t.Error("NearLimit = false, want true")
	}
	if !s.IsRateLimited() {
		t.Error("IsRateLimited() = false, want true")
	}
}

func TestFromHeaders_Empty(t *testing.T) {
	s := FromHeaders(http.Header{}, time.Now())

	if s.Limit != -1 || s.Remaining != -1 {
		t.Errorf("Limit/Remaining = %d/%d, want -1/-1", s.Limit, s.Remaining)
	}
	if s.IsRateLimited() {
		t.Error("IsRateLimited() = true, want false")
	}
	if s.NeedsThrottling() {
		t.Error("NeedsThrottling() = true, want false")
	}
	if s.TimeUntilReset() != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0", s.TimeUntilReset())
	}
}

func TestState_NeedsThrottling(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{name: "healthy", state: State{Remaining: 200}, expected: false},
		{name: "low budget", state: State{Remaining: RemainingThresholdWarning - 1}, expected: true},
		{name: "near limit flag", state: State{Remaining: 300, NearLimit: true}, expected: true},
		{name: "unknown budget", state: State{Remaining: -1}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.NeedsThrottling(); got != tt.expected {
				t.Errorf("NeedsThrottling() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsStale(t *testing.T) {
	fresh := State{LastUpdate: time.Now()}
	stale := State{LastUpdate: time.Now().Add(-10 * time.Minute)}

	if fresh.IsStale(5 * time.Minute) {
		t.Error("fresh state reported stale")
	}
	if !stale.IsStale(5 * time.Minute) {
		t.Error("stale state reported fresh")
	}
}
