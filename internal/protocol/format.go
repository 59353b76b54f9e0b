package protocol

import (
	"fmt"
	"sort"
	"strings"
)

// String renders e as a single log line: time, kind, then the fields that are set.
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%.1f day=%d %s", e.T, e.Day, e.Kind)
	if e.ShipID != 0 {
		fmt.Fprintf(&b, " ship=%d", e.ShipID)
	}
	if e.RaiderID != 0 {
		fmt.Fprintf(&b, " raider=%d", e.RaiderID)
	}
	if e.Base != "" {
		fmt.Fprintf(&b, " base=%s", e.Base)
	}
	if e.Origin != "" || e.Destination != "" {
		fmt.Fprintf(&b, " %s->%s", e.Origin, e.Destination)
	}
	if e.Planet != "" {
		fmt.Fprintf(&b, " planet=%s", e.Planet)
	}
	if e.Success != nil {
		if *e.Success {
			b.WriteString(" success")
		} else {
			b.WriteString(" failed")
		}
	}
	if e.Patrol {
		b.WriteString(" patrol")
	}
	if len(e.Manifest) > 0 {
		fmt.Fprintf(&b, " cargo=%s", FormatManifest(e.Manifest))
	}
	if e.Units != 0 {
		fmt.Fprintf(&b, " units=%d", e.Units)
	}
	if e.Value != 0 {
		fmt.Fprintf(&b, " value=%d", e.Value)
	}
	if s := e.Status; s != nil {
		fmt.Fprintf(&b, " ships=%d raiders=%d launched=%d delivered=%d raids=%d won=%d stolen=%d",
			s.Ships, s.Raiders, s.Launched, s.Delivered, s.Raids, s.RaidsWon, s.StolenUnit)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " %s: %s", e.Entity, e.Message)
	}
	return b.String()
}

// FormatManifest renders a manifest as "id:n,id:n" in id order.
func FormatManifest(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s:%d", k, m[k])
	}
	return strings.Join(parts, ",")
}
