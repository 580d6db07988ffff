// Package redis implements store.SessionStore on top of Redis.
//
// Battle sessions and pending matches are stored as JSON strings with a TTL,
// so abandoned battles disappear without a cleanup job.
package redis
