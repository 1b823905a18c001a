// Package testing provides test utilities, builders, and fixtures for unit and integration tests.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - CloudFixture: an in-memory cloud seeded with a tenancy, sizes, images and templates
//   - ConfigBuilder: fluent builder for broker configurations
//   - MockEngine / MockManager: testify mocks of the cluster engine
//
// Usage:
//
//	fx := testing.NewCloudFixture()
//	p := provider.New(fx.Cloud)
//	session, _ := p.Authenticate(ctx, fx.Username, fx.Password)
package testing
