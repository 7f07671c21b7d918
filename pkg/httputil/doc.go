// Package httputil provides HTTP utilities shared by the plugin host routes.
//
// Errors are always JSON with a machine readable code:
//
//	httputil.WriteErrorMessage(w, http.StatusBadRequest, "missing_query", "query is required")
//	// {"error":"query is required","code":"missing_query"}
//
// Middleware is composed with Chain, outermost first:
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(log),
//		httputil.LoggingMiddleware,
//		httputil.RecoveryMiddleware,
//	)(router)
package httputil
