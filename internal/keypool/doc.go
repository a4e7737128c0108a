// Package keypool rotates LLM provider credentials under per-key request
// windows. Credentials that hit a provider rate limit are cooled down, and
// credentials that keep failing are disabled for the life of the pool.
//
// Window accounting resets a key's counter once its window has elapsed rather
// than keeping a sliding log of request times. Right after a reset a key can
// accept a full window of requests, so bursts straddling the boundary are
// under-counted.
package keypool
