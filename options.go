package memcache

import "time"

// NoTTL stores items without expiration.
const NoTTL = 0

// maxRelativeExptime is the largest exptime memcached reads as relative
// seconds. Larger values are unix timestamps.
const maxRelativeExptime = 60 * 60 * 24 * 30

// Option tunes a single operation.
type Option func(*opOptions)

type opOptions struct {
	ttl            time.Duration
	noReply        bool
	minCompressLen int
}

// WithTTL sets the item expiration. Sub-second TTLs round up to one second.
// TTLs longer than 30 days are sent as an absolute unix time.
func WithTTL(ttl time.Duration) Option {
	return func(o *opOptions) { o.ttl = ttl }
}

// WithNoReply sends the noreply variant of the command. The server sends no
// answer, so the outcome is reported as sent.
func WithNoReply() Option {
	return func(o *opOptions) { o.noReply = true }
}

// WithMinCompressLen overrides Config.MinCompressLen for this call.
// Zero disables compression.
func WithMinCompressLen(n int) Option {
	return func(o *opOptions) { o.minCompressLen = n }
}

func (c *Client) options(opts []Option) opOptions {
	o := opOptions{minCompressLen: c.config.MinCompressLen}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// exptime converts the TTL to the exptime field of the protocol.
func (o opOptions) exptime(now time.Time) int64 {
	if o.ttl <= 0 {
		return 0
	}

	seconds := int64(o.ttl / time.Second)
	if o.ttl%time.Second != 0 {
		seconds++
	}

	if seconds > maxRelativeExptime {
		return now.Unix() + seconds
	}
	return seconds
}
