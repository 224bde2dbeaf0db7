// Package settings serves dictionary entries and system configuration
// values through a two-tier cache: an in-process LRU in front of an
// optional shared Redis tier, with the database as the source of truth.
//
// The cache lifecycle is explicit: write paths call Refresh or Invalidate
// synchronously after a successful store mutation, so readers never serve
// a value older than the last completed write plus the Redis TTL.
package settings
