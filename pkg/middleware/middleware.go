// Package middleware provides the HTTP middleware shared by every module:
// an ordered stack, CORS, and request logging.
package middleware

import "net/http"

// Stack is an ordered list of middleware. The first entry runs outermost.
type Stack []func(http.Handler) http.Handler

// Use appends middleware to the stack. Nil entries are skipped, so optional
// middleware such as an auth guard in an unauthenticated mode can be added
// unconditionally.
func (s *Stack) Use(mw ...func(http.Handler) http.Handler) {
	for _, fn := range mw {
		if fn != nil {
			*s = append(*s, fn)
		}
	}
}

// Apply wraps handler with every middleware in the stack.
func (s Stack) Apply(handler http.Handler) http.Handler {
	for i := len(s) - 1; i >= 0; i-- {
		handler = s[i](handler)
	}
	return handler
}
