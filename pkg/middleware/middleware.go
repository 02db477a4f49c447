// Package middleware holds the HTTP middlewares shared by the service routers.
package middleware

import "net/http"

// Middleware wraps an http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler
