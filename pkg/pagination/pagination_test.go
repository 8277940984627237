package pagination

import (
	"testing"
	"time"
)

func TestCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 123, time.UTC)
	encoded := EncodeCursor(Cursor{At: at, ID: "ORD1740825000000"})

	got, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.At.Equal(at) || got.ID != "ORD1740825000000" {
		t.Fatalf("unexpected cursor %+v", got)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor("  "); c != nil || err != nil {
		t.Fatalf("empty cursor should be nil, got %+v %v", c, err)
	}
	if _, err := ParseCursor("!!"); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := ParseCursor(EncodeCursor(Cursor{At: time.Now()})); err == nil {
		t.Fatalf("expected missing id error")
	}
}

func TestNormalizeLimit(t *testing.T) {
	cases := map[int]int{0: DefaultLimit, -3: DefaultLimit, 10: 10, 500: MaxLimit}
	for in, want := range cases {
		if got := NormalizeLimit(in); got != want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", in, got, want)
		}
	}
	if LimitWithBuffer(10) != 11 {
		t.Fatalf("expected buffer of one")
	}
}
