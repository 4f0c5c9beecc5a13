package feed

import "testing"

func TestNext(t *testing.T) {
	const max = 3

	tests := []struct {
		name       string
		from       Status
		event      Event
		wantStatus Status
		wantAction Action
	}{
		{"connect succeeds", Status{State: StateConnecting}, EventConnected, Status{State: StateStreaming}, ActionNone},
		{"connect succeeds after failures resets count", Status{State: StateConnecting, Failures: 2}, EventConnected, Status{State: StateStreaming}, ActionNone},
		{"first failure", Status{State: StateConnecting}, EventConnectFailed, Status{State: StateDegraded, Failures: 1}, ActionScheduleReconnect},
		{"third failure still retries", Status{State: StateConnecting, Failures: 2}, EventConnectFailed, Status{State: StateDegraded, Failures: 3}, ActionScheduleReconnect},
		{"fourth failure polls", Status{State: StateConnecting, Failures: 3}, EventConnectFailed, Status{State: StatePolling, Failures: 4}, ActionStartPolling},
		{"abrupt close while connecting", Status{State: StateConnecting}, EventClosed, Status{State: StateDegraded, Failures: 1}, ActionScheduleReconnect},
		{"stream drops", Status{State: StateStreaming}, EventClosed, Status{State: StateDegraded, Failures: 1}, ActionScheduleReconnect},
		{"retry elapses", Status{State: StateDegraded, Failures: 2}, EventRetryElapsed, Status{State: StateConnecting, Failures: 2}, ActionOpenStream},
		{"degraded ignores close", Status{State: StateDegraded, Failures: 1}, EventClosed, Status{State: StateDegraded, Failures: 1}, ActionNone},
		{"streaming ignores retry", Status{State: StateStreaming}, EventRetryElapsed, Status{State: StateStreaming}, ActionNone},
		{"polling ignores connected", Status{State: StatePolling, Failures: 4}, EventConnected, Status{State: StatePolling, Failures: 4}, ActionNone},
		{"polling ignores retry", Status{State: StatePolling, Failures: 4}, EventRetryElapsed, Status{State: StatePolling, Failures: 4}, ActionNone},
		{"stop from streaming", Status{State: StateStreaming}, EventStop, Status{State: StateStopped}, ActionNone},
		{"stopped is terminal", Status{State: StateStopped}, EventConnected, Status{State: StateStopped}, ActionNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotStatus, gotAction := Next(tt.from, tt.event, max)
			if gotStatus != tt.wantStatus {
				t.Errorf("status = %v, want %v", gotStatus, tt.wantStatus)
			}
			if gotAction != tt.wantAction {
				t.Errorf("action = %v, want %v", gotAction, tt.wantAction)
			}
		})
	}
}

func TestNext_FourConsecutiveFailuresNeverReopen(t *testing.T) {
	s, act := Initial, ActionOpenStream
	opens := 0

	for i := 0; i < 20; i++ {
		switch act {
		case ActionOpenStream:
			opens++
			s, act = Next(s, EventConnectFailed, 3)
		case ActionScheduleReconnect:
			s, act = Next(s, EventRetryElapsed, 3)
		default:
			// Feed every other event at a terminal polling state.
			for _, ev := range []Event{EventConnected, EventClosed, EventRetryElapsed, EventConnectFailed} {
				var a Action
				s, a = Next(s, ev, 3)
				if a == ActionOpenStream {
					t.Fatalf("polling reopened the stream on %v", ev)
				}
			}
		}
	}

	if s.State != StatePolling {
		t.Errorf("state = %v, want polling", s)
	}
	if opens != 4 {
		t.Errorf("stream opened %d times, want 4", opens)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{Status{State: StateConnecting}, "connecting"},
		{Status{State: StateStreaming}, "streaming"},
		{Status{State: StateDegraded, Failures: 2}, "degraded(2)"},
		{Status{State: StatePolling, Failures: 4}, "polling"},
		{Status{State: StateStopped}, "stopped"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
