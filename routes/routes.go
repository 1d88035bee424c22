// Package routes wires HTTP endpoints to controllers.
//
// Layout:
//   - api.go: versioned API routes (/api/v1/*), health and metrics
//   - web.go: root banner and endpoint listing (/, /docs)
//
// Call routes.SetupAllRoutes(router, normalizeController, adminController)
// from the server entry point.
package routes
