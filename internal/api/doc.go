// Package api exposes the review, adaptive learning and PvP services over
// HTTP. Handlers decode and validate requests, call a service and map its
// errors onto status codes with messages that are safe to show to clients.
package api
