// Package server provides HTTP routing, middleware, and library operation handling.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Library Handler
//
// [LibraryHandler] exposes the synchronization engine over HTTP. Status queries
// run synchronously; scans and imports are long-running, so their endpoints
// enqueue the operation on a [Registry] and reply 202 Accepted with an
// operation id. The operation runs in a background goroutine, and the caller
// polls /library/operations/{id} for the outcome or cancels it with DELETE.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
