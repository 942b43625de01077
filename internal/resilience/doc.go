// Package resilience groups the fault tolerance building blocks used around
// every network boundary of the digest pipeline.
//
//   - circuitbreaker: fail fast when the LLM provider, the article fetcher or
//     the price feed is consistently failing
//   - retry: exponential backoff with jitter, honoring server-provided
//     flood-wait delays
//   - lease: per-key mutual exclusion over the shared cache
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.ClaudeAPIConfig())
//	summary, err := circuitbreaker.Do(cb, func() (entity.Summary, error) {
//	    return callProvider(ctx)
//	})
//
//	err := retry.WithBackoff(ctx, retry.ChannelConfig(), func() error {
//	    return fetchHistory(ctx)
//	})
package resilience
