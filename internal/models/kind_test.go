package models

import (
	"testing"
)

func TestKind_String(t *testing.T) {
	tests := []struct {
		name string
		k    Kind
		want string
	}{
		{"Foreground", KindForeground, "foreground"},
		{"Rx", KindRxBytes, "rx_bytes"},
		{"Calls", KindCalls, "calls"},
		{"Unknown", Kind(99), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.k.String(); got != tt.want {
				t.Errorf("Kind.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range AllKinds() {
		got, err := ParseKind(" " + k.String() + " ")
		if err != nil {
			t.Fatalf("ParseKind(%q) error: %v", k.String(), err)
		}
		if got != k {
			t.Errorf("ParseKind(%q) = %v, want %v", k.String(), got, k)
		}
	}
	if _, err := ParseKind("bogus"); err == nil {
		t.Error("ParseKind(bogus) should fail")
	}
}

func TestKindSet(t *testing.T) {
	set, err := ParseKindSet("tx_bytes, foreground,,rx_bytes")
	if err != nil {
		t.Fatalf("ParseKindSet error: %v", err)
	}
	if !set.Has(KindForeground) || !set.Has(KindRxBytes) || !set.Has(KindTxBytes) {
		t.Errorf("set missing members: %v", set)
	}
	if set.Has(KindCalls) {
		t.Error("set should not contain calls")
	}
	if got := set.String(); got != "foreground,rx_bytes,tx_bytes" {
		t.Errorf("String() = %q", got)
	}

	cats := set.Categories()
	want := []string{"app", "screen", "hf", "net"}
	if len(cats) != len(want) {
		t.Fatalf("Categories() = %v, want %v", cats, want)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, cats[i], want[i])
		}
	}
}

func TestKind_Predicates(t *testing.T) {
	if !KindOtherForeground.IsUse() || KindRxBytes.IsUse() {
		t.Error("IsUse mismatch")
	}
	if !KindTxBytes.IsDemand() || KindSMSSent.IsDemand() {
		t.Error("IsDemand mismatch")
	}
	if KindScreenTime.PerApp() || !KindForeground.PerApp() {
		t.Error("PerApp mismatch")
	}
}
