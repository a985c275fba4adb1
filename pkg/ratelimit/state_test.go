package ratelimit

import (
	"testing"
	"time"
)

func TestState_Exhausted(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{
			name:  "zero value never exhausted",
			state: State{},
			want:  false,
		},
		{
			name:  "zero remaining after update",
			state: State{Remaining: 0, UpdatedAt: now},
			want:  true,
		},
		{
			name:  "requests left",
			state: State{Remaining: 42, UpdatedAt: now},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.Exhausted(); got != tt.want {
				t.Errorf("Exhausted() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestState_WaitUntilReset(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		resetAt time.Time
		want    time.Duration
	}{
		{
			name:    "reset in the future",
			resetAt: now.Add(30 * time.Second),
			want:    30 * time.Second,
		},
		{
			name:    "reset already passed",
			resetAt: now.Add(-10 * time.Second),
			want:    0,
		},
		{
			name:    "reset beyond cap clamps to MaxWait",
			resetAt: now.Add(10 * time.Minute),
			want:    MaxWait,
		},
		{
			name:    "zero reset time",
			resetAt: time.Time{},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{ResetAt: tt.resetAt}
			if got := s.WaitUntilReset(now); got != tt.want {
				t.Errorf("WaitUntilReset() = %v, want %v", got, tt.want)
			}
		})
	}
}
