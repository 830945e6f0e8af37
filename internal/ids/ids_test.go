package ids

import (
	"testing"
	"time"
)

func TestNewIsSortableAndValid(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	first := NewAt(base)
	second := NewAt(base.Add(time.Millisecond))
	if !(first < second) {
		t.Fatalf("expected %s < %s", first, second)
	}
	for _, id := range []string{first, second, New()} {
		if !Valid(id) {
			t.Fatalf("expected %q to be valid", id)
		}
	}
}

func TestValidRejectsGarbage(t *testing.T) {
	for _, id := range []string{"", "   ", "not-an-id", "64f1c0ffee0000000000beef"} {
		if Valid(id) {
			t.Fatalf("expected %q to be rejected", id)
		}
	}
}
