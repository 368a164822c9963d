// Package api implements the HTTP REST API and WebSocket server for GrowWiz.
//
// This package provides:
//   - Device state and manual control endpoints
//   - Emergency stop and resume
//   - Rule management (CRUD, enable/disable)
//   - Activity log, sensor readings and reading history
//   - Operator login issuing JWT bearer tokens
//   - A WebSocket hub pushing device, automation, activity and reading events
//
// # Security
//
// When security.auth.enabled is set, every mutating route requires
// "Authorization: Bearer <token>" from POST /api/v1/auth/login. Reads and the
// WebSocket stream stay open. POST /api/v1/emergency-stop never requires a
// token. Manual control and login are rate limited per client IP.
//
// # Errors
//
// Failures are returned as {"error": {"code": "...", "message": "..."}}.
// Domain errors map to status codes in errors.go.
package api
