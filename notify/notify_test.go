package notify

import (
	"fmt"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestRingKeepsMostRecent(t *testing.T) {
	ring := NewRing(3)
	for i := 0; i < 5; i++ {
		ring.Notify(fmt.Sprintf("n%d", i), "")
	}
	recent := ring.Recent()
	if len(recent) != 3 {
		t.Fatalf("expected 3 buffered, got %d", len(recent))
	}
	if recent[0].Title != "n2" || recent[2].Title != "n4" {
		t.Fatalf("unexpected order: %+v", recent)
	}
}

func TestLogNotifierEmitsFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	NewLog(logger).Notify("Task created", "Write spec added")

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Level != log.InfoLevel || entry.Message != "notification" {
		t.Fatalf("unexpected entry: %v %q", entry.Level, entry.Message)
	}
	if entry.Data["title"] != "Task created" || entry.Data["detail"] != "Write spec added" {
		t.Fatalf("unexpected fields: %#v", entry.Data)
	}
}

func TestMultiFansOut(t *testing.T) {
	var got []string
	sink := Func(func(title, _ string) { got = append(got, title) })
	Multi{sink, sink}.Notify("x", "")
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
}
