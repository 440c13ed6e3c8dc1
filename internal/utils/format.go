package utils

import (
	"fmt"
	"strconv"
	"time"
)

// Number groups the digits of n in threes: 1234567 becomes "1,234,567".
func Number(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}

	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	out := []byte(sign + digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		out = append(out, ',')
		out = append(out, digits[i:i+3]...)
	}
	return string(out)
}

// Duration renders an extraction time: "0s" under a second, "5.2s", "3m5.2s", then "2h15m".
func Duration(d time.Duration) string {
	switch {
	case d < time.Second:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		m := d / time.Minute
		return fmt.Sprintf("%dm%.1fs", m, (d - m*time.Minute).Seconds())
	default:
		return fmt.Sprintf("%dh%dm", d/time.Hour, (d%time.Hour)/time.Minute)
	}
}

// Rate renders n items over elapsed as a per-second figure with a K or M suffix.
func Rate(n int64, elapsed time.Duration) string {
	perSec := float64(n) / max(elapsed.Seconds(), 0.001)
	switch {
	case perSec < 1e3:
		return fmt.Sprintf("%.2f", perSec)
	case perSec < 1e6:
		return fmt.Sprintf("%.2fK", perSec/1e3)
	default:
		return fmt.Sprintf("%.2fM", perSec/1e6)
	}
}

// ByteRate renders bytes over elapsed as a binary-unit throughput, e.g. "12.5 MiB/s".
func ByteRate(bytes int64, elapsed time.Duration) string {
	perSec := float64(bytes) / max(elapsed.Seconds(), 0.001)
	return Bytes(int64(perSec)) + "/s"
}

// Bytes formats a byte count with a binary unit suffix: 512 is "512 B", 1536 is "1.5 KiB".
func Bytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
