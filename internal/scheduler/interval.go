package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// MaxIntervalMinutes caps scan intervals at one year
const MaxIntervalMinutes = 365 * 24 * 60

var intervalRegex = regexp.MustCompile(`^(?:every\s+)?(\d+)\s*(m|h|d|min|mins|minutes?|hours?|days?)?$`)

// ParseInterval parses a scan interval such as "45", "30m", "2h",
// "every 2 hours" or "1d" and returns whole minutes. A bare number is
// minutes.
func ParseInterval(expr string) (int, error) {
	expr = strings.TrimSpace(strings.ToLower(expr))
	matches := intervalRegex.FindStringSubmatch(expr)
	if matches == nil {
		return 0, fmt.Errorf("unrecognized interval: %q", expr)
	}

	value, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", expr, err)
	}

	unit := time.Minute
	switch u := matches[2]; {
	case strings.HasPrefix(u, "h"):
		unit = time.Hour
	case strings.HasPrefix(u, "d"):
		unit = 24 * time.Hour
	}

	perUnit := int(unit / time.Minute)
	if value > MaxIntervalMinutes/perUnit {
		return 0, fmt.Errorf("maximum interval is %d days", MaxIntervalMinutes/(24*60))
	}
	minutes := value * perUnit
	if minutes < 1 {
		return 0, fmt.Errorf("minimum interval is 1 minute")
	}
	return minutes, nil
}
