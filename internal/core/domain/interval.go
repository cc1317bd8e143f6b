package domain

const (
	MIN_SCAN_INTERVAL_SECONDS     = 10
	MAX_SCAN_INTERVAL_SECONDS     = 300
	DEFAULT_SCAN_INTERVAL_SECONDS = 30
)

// ClampScanInterval bounds a scan interval to the supported range. The second
// result reports whether the value had to be changed.
func ClampScanInterval(seconds int) (int, bool) {
	switch {
	case seconds < MIN_SCAN_INTERVAL_SECONDS:
		return MIN_SCAN_INTERVAL_SECONDS, true
	case seconds > MAX_SCAN_INTERVAL_SECONDS:
		return MAX_SCAN_INTERVAL_SECONDS, true
	default:
		return seconds, false
	}
}
