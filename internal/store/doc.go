// Package store declares the persistence interfaces the services depend on:
// memory cards and review logs, learner profiles and answer events, and the
// PvP ratings, queue, seasons and battle sessions. It also owns the store
// error sentinels and the transaction helpers shared by every backend.
package store
