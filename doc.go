// Package accounts implements a minimal user-account backend: registration,
// password login, JWT issuance, and bearer-token authenticated CRUD over a
// single users table.
//
// Layering:
//   - Users persists User records through Bun; email uniqueness is
//     enforced by the storage constraint and surfaced as ErrDuplicateEmail.
//   - HashPassword/ComparePasswordAndHash and TokenService make up the
//     credential layer. Tokens are stateless HS256 JWTs verified by signature
//     and expiry alone; there is no server-side session or revocation list.
//   - UserManager mediates between store and transport: it hashes before
//     persisting, collapses unknown-email and wrong-password into a single
//     ErrInvalidCredentials, and fires post-registration listeners without
//     blocking or failing the registration itself.
//   - Auther binds an IdentityProvider to the TokenService, turning a verified
//     identity into a signed token and a presented token back into a session.
//     The bearer transport lives in middleware/jwtware.
//
// The HTTP surface (AccountController) performs shape validation only; every
// business rule lives below it.
package accounts
