// Package kv implements the repository ports on top of cache.Store.
package kv

import (
	"strconv"
	"strings"
)

// DefaultPrefix namespaces every key written by the pipeline.
const DefaultPrefix = "digest:"

// Keys builds the cache key layout.
type Keys struct {
	prefix string
}

// NewKeys returns the key layout rooted at prefix.
func NewKeys(prefix string) Keys {
	return Keys{prefix: prefix}
}

func (k Keys) Articles() string       { return k.prefix + "articles" }
func (k Keys) Processed() string      { return k.prefix + "processed" }
func (k Keys) Status() string         { return k.prefix + "status" }
func (k Keys) FailedPrefix() string   { return k.prefix + "failed:" }
func (k Keys) Failed(id int64) string { return k.FailedPrefix() + formatID(id) }
func (k Keys) RetryQueue() string     { return k.prefix + "retry:queue" }
func (k Keys) LockPrefix() string     { return k.prefix + "lock:" }
func (k Keys) HighWaterMark() string  { return k.prefix + "hwm" }
func (k Keys) APIID() string          { return k.prefix + "api_id" }
func (k Keys) Prices() string         { return k.prefix + "prices" }

// idFromFailedKey extracts the message id from a failure record key.
func (k Keys) idFromFailedKey(key string) (int64, bool) {
	rest, ok := strings.CutPrefix(key, k.FailedPrefix())
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
