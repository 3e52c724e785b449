package vmm

import (
	"testing"

	"memkern/kernel/mem/pmm"
)

func TestEntryFlagsRoundTrip(t *testing.T) {
	var e entry
	e.setFlags(flagPresent | flagRW)
	if !e.hasFlags(flagPresent) || !e.hasFlags(flagRW) {
		t.Fatalf("expected present and rw flags set")
	}
	if e.hasFlags(flagUser) {
		t.Fatalf("did not expect user flag set")
	}

	e.clearFlags(flagRW)
	if e.hasFlags(flagRW) {
		t.Fatalf("expected rw flag cleared")
	}
	if !e.hasFlags(flagPresent) {
		t.Fatalf("clearing rw should not disturb present")
	}
}

func TestEntryFrameRoundTrip(t *testing.T) {
	var e entry
	e.setFlags(flagPresent | flagRW)
	e.setFrame(pmm.Frame(42))

	if got := e.frame(); got != pmm.Frame(42) {
		t.Fatalf("frame() = %d, want 42", got)
	}
	if !e.hasFlags(flagPresent) || !e.hasFlags(flagRW) {
		t.Fatalf("setFrame must not disturb existing flags")
	}
}

func TestPageAttributesValue(t *testing.T) {
	cases := []struct {
		name string
		attr PageAttributes
		want uintptr
	}{
		{"user", DefaultUserPage, 0x7},
		{"supervisor", DefaultSupervisorPage, 0x3},
		{"not-present-user", NotPresentUserPage, 0x6},
		{"not-present-supervisor", NotPresentSupervisorPage, 0x2},
	}
	for _, c := range cases {
		if got := c.attr.Value(); got != c.want {
			t.Errorf("%s.Value() = %#x, want %#x", c.name, got, c.want)
		}
	}
}
