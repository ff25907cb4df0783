// Package http implements the HTTP handlers for the Almanac futures
// statistics service. It is a thin layer between transport and the
// service packages: handlers parse and validate requests, call one
// service method, and format the response.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - all logic belongs in the service layer
//	5. Consistent patterns - standardized request/response handling
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Store
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// Each handler owns a Routes() chi.Router that the application mounts
// under /api. Services are consumed through interfaces declared in
// interfaces.go, so tests exercise handlers against hand-rolled fakes.
//
// # Responses
//
// Successful responses use a uniform envelope:
//
//	{
//	    "status": "success",
//	    "data":   ...
//	}
//
// Errors follow RFC 7807 Problem Details, produced by the shared
// ErrorHandler:
//
//	{
//	    "type":   "/errors/product/not-found",
//	    "title":  "Not Found",
//	    "status": 404,
//	    "detail": "Product 'XX' not found",
//	    "instance": "/api/stats/hourly"
//	}
//
// Service sentinel errors are mapped with errors.Is onto API error
// codes (VALIDATION_FAILED, PRODUCT_NOT_FOUND, NO_DATA,
// JOB_ALREADY_RUNNING, ...) before reaching the ErrorHandler.
//
// # WebSocket Support
//
// The /ws endpoint upgrades with Gorilla WebSocket and hands the
// connection to the hub, which fans out warmup progress, cache and
// shutdown events.
package http
