// Package pipeline turns free-form transaction text into validated
// transactions. A request takes a pooled credential, goes through the
// throttler and completion cache, and its completion is parsed and validated.
package pipeline
