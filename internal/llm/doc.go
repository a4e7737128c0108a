// Package llm provides completion clients for the supported LLM providers.
// Clients are stateless with respect to credentials: every call takes the API
// key to use, so the key pool decides which credential serves which request.
// Non-success HTTP responses are returned as *common.ProviderError so callers
// can tell rate limiting apart from other failures.
package llm
