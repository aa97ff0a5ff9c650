// Package app wires the license API together: configuration, logging,
// OpenTelemetry, the license service and the HTTP router.
//
// Routes:
//
//	GET  /healthz                      liveness
//	GET  /version                      build information
//	GET  /metrics                      Prometheus scrape endpoint
//	POST /api/v1/licenses/generate     issue a fresh license
//	POST /api/v1/licenses/inspect      diagnose an uploaded license
//	POST /api/v1/licenses/reissue      migrate, override and re-sign a license
//
// Run serves until SIGINT or SIGTERM and then shuts the server down within
// Server.ShutdownTimeout. Initialization errors are returned to the caller;
// the package never calls os.Exit.
package app
