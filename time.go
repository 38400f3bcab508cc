package pakbus

import "time"

// epoch is the NSec base time, 1990-01-01 00:00:00 UTC (spec §3, GLOSSARY).
var epoch = time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)

// NsecToTime converts an NSecValue to a UTC time.Time, truncated to the
// second the way the original implementation does (microseconds/nanoseconds
// beyond whole seconds are discarded -- spec §8 round-trip law).
func NsecToTime(n NSecValue) time.Time {
	return epoch.Add(time.Duration(n.Sec) * time.Second).Truncate(time.Second)
}

// TimeToNsec converts a UTC time.Time to an NSecValue relative to epoch.
func TimeToNsec(t time.Time) NSecValue {
	d := t.UTC().Sub(epoch)
	return NSecValue{Sec: int32(d / time.Second), Nsec: 0}
}
