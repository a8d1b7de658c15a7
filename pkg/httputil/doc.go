// Package httputil provides HTTP utilities shared by the grove handlers.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, trees)
//	httputil.WriteSuccessMessage(w, "Successfully created new tree", tree)
//	httputil.WriteBadRequest(w, "Content-Type must be application/json")
//
// # Request Parsing
//
//	id, err := httputil.ParsePathInt64(r, "id")
//
//	var body updateTreeRequest
//	if err := httputil.ParseJSON(r, &body); err != nil {
//		// 400
//	}
//
// # Partial Updates
//
// Optional records whether a JSON field was sent at all, was sent as null, or
// carried a value. Coalesce applies the update rule used by the PUT
// endpoints: only a present, non-zero value replaces the stored one.
//
//	tree.Location = httputil.Coalesce(body.Location, tree.Location)
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.TimeoutMiddleware(30*time.Second),
//		httputil.MaxBytesMiddleware(1<<20),
//	)(router)
//
// # Related Packages
//
//   - pkg/middleware: Redis backed rate limiting
package httputil
