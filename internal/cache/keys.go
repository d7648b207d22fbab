package cache

import "fmt"

func SessionTokenKey(sessionID string) string {
	return fmt.Sprintf("session:%s:jwt", sessionID)
}

func RateLimitKey(subject string) string {
	return fmt.Sprintf("ratelimit:%s", subject)
}
