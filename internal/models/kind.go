// Package models defines data structures and domain types.
package models

import (
	"fmt"
	"strings"
)

// Kind identifies a derived event kind tracked by the engine.
type Kind int

const (
	// KindForeground counts foreground instances while the device is in use.
	KindForeground Kind = iota
	// KindOtherForeground counts foreground instances while the screen is off or locked.
	KindOtherForeground
	// KindRxBytes accumulates received bytes per app.
	KindRxBytes
	// KindTxBytes accumulates transmitted bytes per app.
	KindTxBytes
	// KindScreenTime accumulates screen-on seconds.
	KindScreenTime
	// KindScreenSessions counts screen-on sessions.
	KindScreenSessions
	// KindSMSInbox counts received messages.
	KindSMSInbox
	// KindSMSSent counts sent messages.
	KindSMSSent
	// KindCallTime accumulates call seconds.
	KindCallTime
	// KindCalls counts finished calls.
	KindCalls

	kindCount
)

var kindNames = [kindCount]string{
	"foreground",
	"other_foreground",
	"rx_bytes",
	"tx_bytes",
	"screen_time",
	"screen_sessions",
	"sms_inbox",
	"sms_sent",
	"call_time",
	"calls",
}

// AllKinds returns every kind in declaration order.
func AllKinds() []Kind {
	kinds := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// String returns the canonical name of the kind.
func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return "unknown"
	}
	return kindNames[k]
}

// ParseKind maps a canonical name back to its kind.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown kind: %q", s)
}

// IsUse reports whether the kind counts foreground app usage.
func (k Kind) IsUse() bool {
	return k == KindForeground || k == KindOtherForeground
}

// IsDemand reports whether the kind measures network demand.
func (k Kind) IsDemand() bool {
	return k == KindRxBytes || k == KindTxBytes
}

// PerApp reports whether the kind is keyed by app name rather than by device.
func (k Kind) PerApp() bool {
	return k.IsUse() || k.IsDemand()
}

// Category returns the leading EntryType token that feeds this kind.
func (k Kind) Category() string {
	switch k {
	case KindForeground, KindOtherForeground:
		return "app"
	case KindRxBytes, KindTxBytes:
		return "net"
	case KindScreenTime, KindScreenSessions:
		return "screen"
	case KindSMSInbox, KindSMSSent:
		return "sms"
	case KindCallTime, KindCalls:
		return "phone"
	default:
		return ""
	}
}

// Unit returns a short label for the kind's unit of measure.
func (k Kind) Unit() string {
	switch k {
	case KindRxBytes, KindTxBytes:
		return "bytes"
	case KindScreenTime, KindCallTime:
		return "seconds"
	case KindScreenSessions:
		return "sessions"
	case KindSMSInbox, KindSMSSent:
		return "messages"
	case KindCalls:
		return "calls"
	default:
		return "instances"
	}
}

// KindSet is an ordered set of tracked kinds.
type KindSet uint32

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s |= 1 << uint(k)
	}
	return s
}

// Has reports whether k is in the set.
func (s KindSet) Has(k Kind) bool {
	return k >= 0 && k < kindCount && s&(1<<uint(k)) != 0
}

// Kinds returns the members in declaration order.
func (s KindSet) Kinds() []Kind {
	var out []Kind
	for _, k := range AllKinds() {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

// Categories returns the EntryType categories needed to derive the kinds in the set.
// Foreground kinds need the hf category for lock state and screen for power state;
// demand kinds need app for the identity table.
func (s KindSet) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, k := range s.Kinds() {
		add(k.Category())
		switch {
		case k.IsUse():
			add("screen")
			add("hf")
		case k.IsDemand():
			add("app")
		}
	}
	return out
}

// ParseKindSet parses a comma-separated list of kind names.
func ParseKindSet(s string) (KindSet, error) {
	var set KindSet
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, err := ParseKind(part)
		if err != nil {
			return 0, err
		}
		set |= NewKindSet(k)
	}
	return set, nil
}

// String joins the member names with commas.
func (s KindSet) String() string {
	kinds := s.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ",")
}
