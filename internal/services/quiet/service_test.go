package quiet

import (
	"testing"
	"time"

	logx "soultray/pkg/logx"
)

func newTestService() (*Service, *time.Time) {
	s := New(Config{Enabled: true}, logx.Nop())
	now := time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestValidate(t *testing.T) {
	t.Parallel()
	s := New(Config{}, logx.Nop())
	tests := []struct {
		name    string
		windows []Window
		wantErr bool
	}{
		{"empty", nil, false},
		{"five field", []Window{{Start: "0 22 * * *", Duration: 8 * time.Hour}}, false},
		{"six field", []Window{{Start: "0 0 22 * * *", Duration: time.Hour}}, false},
		{"descriptor", []Window{{Start: "@daily", Duration: time.Hour}}, false},
		{"bad spec", []Window{{Start: "not a cron", Duration: time.Hour}}, true},
		{"zero duration", []Window{{Start: "0 22 * * *", Duration: 0}}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := s.Validate(Config{Enabled: true, Windows: tt.windows})
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInactiveByDefault(t *testing.T) {
	t.Parallel()
	s, _ := newTestService()
	if s.Active() {
		t.Error("Active() = true before any window opened")
	}
}

func TestOpenWindowActivates(t *testing.T) {
	t.Parallel()
	s, now := newTestService()
	s.open(time.Hour)
	if !s.Active() {
		t.Fatal("Active() = false inside window")
	}
	*now = now.Add(59 * time.Minute)
	if !s.Active() {
		t.Error("Active() = false just before window end")
	}
	*now = now.Add(2 * time.Minute)
	if s.Active() {
		t.Error("Active() = true after window end")
	}
}

func TestOverlappingWindowsKeepLatestEnd(t *testing.T) {
	t.Parallel()
	s, now := newTestService()
	s.open(2 * time.Hour)
	s.open(30 * time.Minute) // shorter overlap must not shorten the deadline
	*now = now.Add(90 * time.Minute)
	if !s.Active() {
		t.Error("Active() = false; shorter window shortened the deadline")
	}
}

func TestApplyRejectsBadSpec(t *testing.T) {
	t.Parallel()
	s, _ := newTestService()
	err := s.Apply(Config{Enabled: true, Windows: []Window{{Start: "nope", Duration: time.Hour}}})
	if err == nil {
		t.Error("Apply accepted an invalid cron spec")
	}
}
