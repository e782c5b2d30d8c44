// Package auth provides bearer-token authentication for the races API.
//
// # JWT Tokens
//
// Clients authenticate with HS256 JWTs signed with auth.jwt_secret. The "sub" claim names the
// caller and is required; "exp" is enforced. Tokens are minted with JWTVerifier.Generate,
// which backs the `races token` command.
//
// # HTTP Middleware
//
// RequireBearer guards the mutating routes:
//
//	r.With(auth.RequireBearer(verifier, logger)).Post("/races", ...)
//
// Missing, malformed, invalid or expired tokens get 401 with a JSON error body. On success the
// subject is stored in the request context:
//
//	sub := auth.SubjectFromContext(r.Context())
//
// Read-only routes stay anonymous. When no secret is configured the server passes a nil
// verifier and the middleware lets every request through.
package auth
