package redis

import (
	"context"
	"fmt"
	"time"
)

// releaseLockScript deletes KEYS[1] only while it still holds ARGV[1].
const releaseLockScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// fixedWindowScript counts a hit in KEYS[1] and starts the window of
// ARGV[1] milliseconds on the first hit.
const fixedWindowScript = `local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`

// ReleaseLock deletes key when owner still holds it and reports whether it
// did. A lock that expired and was taken by another holder is left alone.
func (c *Client) ReleaseLock(ctx context.Context, key, owner string) (bool, error) {
	s, err := c.cmd()
	if err != nil {
		return false, err
	}
	deleted, err := s.Eval(ctx, releaseLockScript, []string{key}, owner).Int64()
	if err != nil {
		return false, fmt.Errorf("release lock %s: %w", key, err)
	}
	return deleted == 1, nil
}

// FixedWindowAllow counts a hit for scope and reports whether the window is
// still within limit, along with the hits so far.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s, err := c.cmd()
	if err != nil {
		return false, 0, err
	}
	k := c.RateLimitKey(scope)
	count, err := s.Eval(ctx, fixedWindowScript, []string{k}, window.Milliseconds()).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("rate limit %s: %w", k, err)
	}
	return count <= limit, count, nil
}
