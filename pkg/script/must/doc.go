// Package must is a dependency-free script.Interpreter stub used by tests
// and also registered by the cmd/murphyd demo, the same way the rest of
// this codebase keeps small in-memory doubles alongside real
// third-party-backed implementations.
package must
