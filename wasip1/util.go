package wasip1

import "time"

// nsToTime converts a host-ABI nanosecond timestamp to a time.Time.
func nsToTime(ns uint64) time.Time {
	return time.Unix(0, int64(ns)).UTC()
}
