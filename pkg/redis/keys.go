package redis

import "strings"

const namespace = "rq"

// key joins non-empty parts under the service namespace, e.g.
// rq:lock:quote:<id>.
func key(parts ...string) string {
	b := strings.Builder{}
	b.WriteString(namespace)
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string { return key("idempotency", scope, id) }

func (c *Client) RateLimitKey(scope string) string { return key("rate_limit", scope) }

func (c *Client) CounterKey(name string) string { return key("counter", name) }

// AccessSessionKey holds the refresh session for one access token id.
func (c *Client) AccessSessionKey(accessID string) string { return key("session", "access", accessID) }

func (c *Client) LockKey(scope, id string) string { return key("lock", scope, id) }

// QuoteLockKey guards edits to one draft quote.
func (c *Client) QuoteLockKey(quoteID string) string { return c.LockKey("quote", quoteID) }
