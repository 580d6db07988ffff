// Package testutils provides in-memory store implementations, a serialising
// transactor and database helpers shared by the package tests.
//
// Postgres integration tests call GetTestDBWithT, which skips the test unless
// CERTQUEST_TEST_DATABASE_URL is set.
package testutils
