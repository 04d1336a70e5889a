package audit

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("opening store: %s", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)

	older := Violation{
		Func: "f", Param: "x", Expected: "int", Actual: "str",
		At: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	newer := Violation{
		Func: "g", Param: "y", Expected: "str", Actual: "nil",
		At: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	for _, v := range []Violation{older, newer} {
		if err := s.Record(v); err != nil {
			t.Fatalf("recording: %s", err)
		}
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("counting: %s", err)
	}
	if n != 2 {
		t.Fatalf("count. got=%d, want=2", n)
	}

	recent, err := s.Recent(1)
	if err != nil {
		t.Fatalf("reading: %s", err)
	}
	if len(recent) != 1 {
		t.Fatalf("recent length. got=%d, want=1", len(recent))
	}
	if recent[0].Func != "g" {
		t.Errorf("newest violation. got=%q, want=%q", recent[0].Func, "g")
	}
}

func TestRecordFillsIDAndTimestamp(t *testing.T) {
	s := openTestStore(t)

	if err := s.Record(Violation{Func: "f", Param: "x", Expected: "int", Actual: "str"}); err != nil {
		t.Fatalf("recording: %s", err)
	}

	recent, err := s.Recent(1)
	if err != nil {
		t.Fatalf("reading: %s", err)
	}
	v := recent[0]
	if v.ID == "" {
		t.Errorf("ID not filled in")
	}
	if v.At.IsZero() {
		t.Errorf("timestamp not filled in")
	}
}

func TestNilStoreIsNoop(t *testing.T) {
	var s *Store

	if err := s.Record(Violation{Func: "f"}); err != nil {
		t.Errorf("nil store Record: %s", err)
	}
	if n, err := s.Count(); err != nil || n != 0 {
		t.Errorf("nil store Count. got=%d/%v, want 0/nil", n, err)
	}
	if vs, err := s.Recent(5); err != nil || vs != nil {
		t.Errorf("nil store Recent. got=%v/%v", vs, err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("nil store Close: %s", err)
	}
}

func TestRecentLimit(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 5; i++ {
		if err := s.Record(Violation{Func: "f", Param: "x", Expected: "int", Actual: "str"}); err != nil {
			t.Fatalf("recording %d: %s", i, err)
		}
	}

	recent, err := s.Recent(3)
	if err != nil {
		t.Fatalf("reading: %s", err)
	}
	if len(recent) != 3 {
		t.Errorf("recent length. got=%d, want=3", len(recent))
	}
}
