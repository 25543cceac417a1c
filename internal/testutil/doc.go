// Package testutil provides deterministic fixtures shared by package tests:
// seeded vector sources, valid envelopes, and data frames.
//
// Nothing here is used outside _test.go files.
package testutil
