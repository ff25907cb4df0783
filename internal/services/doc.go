// Package services implements the business logic layer of the Almanac
// server. It sits between the HTTP handlers and the storage, filter and
// statistics packages, keeping the computation rules centralized and
// testable.
//
// # Architecture
//
// Services follow these architectural principles:
//
//	1. Interface-driven design for testability
//	2. Context propagation for cancellation and tracing
//	3. Dependency injection for loose coupling
//	4. Sentinel errors that handlers map to API responses
//
// # Available Services
//
// The package provides these core services:
//
//	- DatasetService: Loads minute and daily bars for a product
//	- StatsService: Runs the cached statistics pipeline
//	- ProductService: Lists products and their data coverage
//	- EventService: Exposes the economic release calendars
//	- ExportService: Renders reports as CSV and XLSX downloads
//	- WarmupService: Precomputes the stats cache as a background job
//	- HealthService: Answers liveness, readiness and version probes
//
// # Error Handling
//
// Services return the sentinel errors declared in errors.go wrapped
// with context. Handlers unwrap them with errors.Is to choose the API
// error response.
package services
