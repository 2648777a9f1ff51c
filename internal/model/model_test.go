package model

import "testing"

func TestReservationStatus_CanTransitionTo(t *testing.T) {
	t.Parallel()

	all := []ReservationStatus{StatusPending, StatusConfirmed, StatusRefused, StatusCanceled}
	allowed := map[ReservationStatus]map[ReservationStatus]bool{
		StatusPending:   {StatusConfirmed: true, StatusRefused: true, StatusCanceled: true},
		StatusConfirmed: {StatusCanceled: true},
	}

	for _, from := range all {
		for _, to := range all {
			want := allowed[from][to]
			if got := from.CanTransitionTo(to); got != want {
				t.Errorf("%s -> %s: expected %v, got %v", from, to, want, got)
			}
		}
	}
}

func TestReservationStatus_CapacityClasses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   ReservationStatus
		holds    bool
		released bool
	}{
		{StatusPending, true, false},
		{StatusConfirmed, true, false},
		{StatusRefused, false, true},
		{StatusCanceled, false, true},
	}
	for _, tt := range tests {
		if tt.status.HoldsCapacity() != tt.holds {
			t.Errorf("%s: HoldsCapacity expected %v", tt.status, tt.holds)
		}
		if tt.status.Released() != tt.released {
			t.Errorf("%s: Released expected %v", tt.status, tt.released)
		}
	}
	if ReservationStatus("WAITLISTED").Valid() {
		t.Fatalf("unknown status must not be valid")
	}
}

func TestBadgeID(t *testing.T) {
	t.Parallel()

	if got := BadgeID("3f2a9c1e-0b4d-4e6f-8a1b-2c3d4e5f6a7b"); got != "3F2A9C1E" {
		t.Fatalf("expected 3F2A9C1E, got %s", got)
	}
	if got := BadgeID("ab-c"); got != "ABC" {
		t.Fatalf("expected ABC, got %s", got)
	}
}

func TestEvent_HeldAndIsFull(t *testing.T) {
	t.Parallel()

	tests := []struct {
		max, remaining int
		held           int
		full           bool
	}{
		{3, 3, 0, false},
		{3, 1, 2, false},
		{3, 0, 3, true},
		{1, 0, 1, true},
	}
	for _, tt := range tests {
		e := Event{MaxCapacity: tt.max, RemainingPlaces: tt.remaining}
		if e.Held() != tt.held || e.IsFull() != tt.full {
			t.Errorf("%d/%d: expected held=%d full=%v, got held=%d full=%v",
				tt.remaining, tt.max, tt.held, tt.full, e.Held(), e.IsFull())
		}
	}
}
