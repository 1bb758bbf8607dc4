// Package contexthelpers stores and retrieves request-scoped values such as
// CSRF tokens and CSP nonces.
package contexthelpers

type contextKey string

const currentPathContextKey = contextKey("currentPath")
const csrfTokenContextKey = contextKey("csrfToken")
const cspNonceContextKey = contextKey("cspNonce")
