// Package httputil provides shared HTTP helpers used by the API layer:
// JSON response envelopes, request parsing, and common middleware
// (request IDs, access logging, panic recovery, body limits).
//
// All list endpoints respond with the same envelope so clients can rely
// on a stable shape:
//
//	{"code": 2000, "data": {...}, "msg": "success"}
//
// Errors use the same envelope with a non-2000 code and an explanatory
// message. Handlers should not write raw JSON themselves.
package httputil
