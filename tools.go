//go:build tools

package tools

// Mocks in pkg/transport/mocks are generated from .mockery.yml.
// mockery v3 is used as an installed binary (not via go run), so no
// import is needed. Run: mockery (from the module root) to regenerate.
