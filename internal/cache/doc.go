// Package cache provides bounded, expiring key/value stores. Memory is an
// in-process generic cache; Store is the string-valued contract the request
// throttler uses, with in-memory and Redis implementations.
package cache
