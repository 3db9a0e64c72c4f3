// Package auth authenticates gateway clients.
//
// An Authenticator turns request headers into an Identity. The gateway
// accepts API keys (X-API-Key) and bearer JWTs validated against a static
// HMAC secret or a JWKS endpoint; a CompositeAuthenticator tries them in
// order. The authenticated principal is the client id the inbound rate
// limiter counts against.
//
// A RoleAuthorizer optionally restricts expensive actions, such as the
// intelligence fan-out, to identities holding a given role.
package auth
