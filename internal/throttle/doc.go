// Package throttle paces outbound provider calls.
//
// A Throttler caps how many calls are in flight, spaces them with an
// exponential backoff that grows only while the provider keeps answering with
// rate-limit errors, and can short-circuit repeated identical requests through
// a cache.Store. Batcher groups calls that share a key into one underlying
// call. Neither retries on the caller's behalf.
package throttle
