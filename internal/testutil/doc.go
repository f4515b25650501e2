// Package testutil provides deterministic helpers for tests and the
// conformance harness: a virtual FakeClock and predictable step IDs.
package testutil
