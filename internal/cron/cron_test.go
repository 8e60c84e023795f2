package cron

import (
	"errors"
	"testing"
)

func TestCronSpec(t *testing.T) {
	cases := []struct {
		at   string
		want string
	}{
		{"03:00", "0 0 3 * * *"},
		{"04:30", "0 30 4 * * *"},
		{"23:59", "0 59 23 * * *"},
		{"0:5", "0 5 0 * * *"},
	}
	for _, c := range cases {
		got, err := cronSpec(c.at)
		if err != nil {
			t.Fatalf("cronSpec(%q): %v", c.at, err)
		}
		if got != c.want {
			t.Fatalf("cronSpec(%q) = %q, want %q", c.at, got, c.want)
		}
	}
}

func TestCronSpecRejectsBadInput(t *testing.T) {
	for _, at := range []string{"", "0700", "24:00", "12:60", "aa:bb", "12"} {
		if _, err := cronSpec(at); err == nil {
			t.Fatalf("cronSpec(%q) should fail", at)
		}
	}
}

func TestAddDailyRejectsBadTime(t *testing.T) {
	s, err := NewService("Asia/Taipei")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	if err := s.AddDaily("decay", "25:00", func() error { return nil }); err == nil {
		t.Fatal("expected error for invalid time")
	}
}

func TestNewServiceRejectsBadTimezone(t *testing.T) {
	if _, err := NewService("Not/AZone"); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestRunJobRecordsResult(t *testing.T) {
	s, err := NewService("Asia/Taipei")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	s.runJob("backup", func() error { return nil })
	res, ok := s.LastResult("backup")
	if !ok {
		t.Fatal("expected a recorded result")
	}
	if res.Err != "" {
		t.Fatalf("expected success, got error %q", res.Err)
	}

	s.runJob("backup", func() error { return errors.New("disk full") })
	res, _ = s.LastResult("backup")
	if res.Err != "disk full" {
		t.Fatalf("expected recorded error, got %q", res.Err)
	}

	if _, ok := s.LastResult("decay"); ok {
		t.Fatal("unran job should have no result")
	}
}
