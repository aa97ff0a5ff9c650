// Package http exposes the license service over HTTP.
//
// Handlers are thin: they bind and validate the request, call the license
// service and render either the license file (application/x-yaml) or a JSON
// report. Failures are rendered as RFC 7807 problem details by the shared
// error handler, so an expired or malformed upload yields a typed problem
// rather than a bare status code.
//
// Routes, mounted under /api/v1 by the application:
//
//	POST /licenses/generate   JSON overrides -> license file
//	POST /licenses/inspect    license file   -> JSON report
//	POST /licenses/reissue    license file   -> re-signed license file
//
// Each request loads or generates its own document; nothing is stored.
package http
