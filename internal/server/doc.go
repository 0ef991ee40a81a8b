// Package server provides HTTP routing, middleware, and the route handlers of the moodmix web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation registers "METHOD /path" patterns on [http.ServeMux], so a request
// with the wrong method answers 405 and wildcards such as /songs/{genre} are read with PathValue.
//
// # Middleware
//
//   - [RequestIDMiddleware] : assigns or propagates X-Request-ID
//   - [LoggingMiddleware] : one log line per request with status and duration
//   - [RecoverMiddleware] : panics become a 500 JSON error
//   - [CORSMiddleware] : allowlisted origins and preflight answers
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
// [AuthHandler] owns the token lifecycle routes this way.
//
// # Responses
//
// Success bodies are JSON. Every failure uses the envelope {"error": summary, "details": upstream body},
// with details omitted when there is nothing to add. Upstream failures are never passed through as-is:
// a rejected proxy call answers 400, a missing session 401.
package server
