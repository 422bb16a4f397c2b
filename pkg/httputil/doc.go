// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteJSON(w, http.StatusOK, data)
//	httputil.WriteForbidden(w, decision.Reason)
//	httputil.WriteInternalError(w, r, err) // logs err, returns a generic body
//
// Every error body carries the request id so clients can quote it.
//
// # Request Parsing
//
//	var req addKeyRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // 400 already written
//	}
//
// ParseJSON rejects unknown fields and then applies go-playground/validator
// tags. Validation failures list the offending json field names.
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware(cfg.TrustProxy),
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
