// Package redis provides Redis connection bootstrap for the rate-limit
// delivery counter: URL-based configuration, startup retries, and a health
// check closure.
package redis
