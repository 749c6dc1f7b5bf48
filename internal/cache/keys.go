package cache

import "fmt"

// SnapshotKey keys a cached insights snapshot by the hash of its filter.
func SnapshotKey(filterHash string) string {
	return fmt.Sprintf("insights:snapshot:%s", filterHash)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
