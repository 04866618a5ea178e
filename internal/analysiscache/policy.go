package analysiscache

import (
	"fmt"

	"repowatch/internal/storage"
)

// Policy selects which entries Evict removes first.
type Policy string

const (
	// PolicyLRU evicts the least recently accessed entries first.
	PolicyLRU Policy = "lru"

	// PolicyOldest evicts the oldest created entries first.
	PolicyOldest Policy = "oldest"

	// PolicyLargest evicts the largest compressed payloads first, freeing
	// the target with the fewest deletions.
	PolicyLargest Policy = "largest"

	// PolicyMostExpensive evicts the entries with the highest cost hint
	// first. These are the entries most expensive to recreate, so this is
	// not a cost-saving policy: use it when a few rare outliers hold most
	// of the space and the cheap-to-recompute bulk should stay cached.
	PolicyMostExpensive Policy = "most-expensive"
)

// Policies lists every supported policy in display order.
var Policies = []Policy{PolicyLRU, PolicyOldest, PolicyLargest, PolicyMostExpensive}

// ParsePolicy parses a policy name from configuration or the CLI.
func ParsePolicy(name string) (Policy, error) {
	for _, p := range Policies {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown eviction policy: %q", name)
}

func (p Policy) order() (storage.EvictionOrder, error) {
	switch p {
	case PolicyLRU:
		return storage.OrderLeastRecentlyAccessed, nil
	case PolicyOldest:
		return storage.OrderOldestCreated, nil
	case PolicyLargest:
		return storage.OrderLargest, nil
	case PolicyMostExpensive:
		return storage.OrderMostExpensive, nil
	default:
		return 0, fmt.Errorf("unknown eviction policy: %q", p)
	}
}
