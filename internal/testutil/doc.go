// Package testutil contains helper stubs and builders used across tests to
// reduce boilerplate when exercising providers, runners and facades. These
// helpers are not intended for production usage.
package testutil
