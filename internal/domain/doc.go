// Package domain holds the entities shared by the services: memory cards,
// questions, learner profiles, player ratings, rank tiers and seasons.
// The algorithms that operate on them live in the subpackages srs, adaptive,
// rating and matchmaking.
package domain
