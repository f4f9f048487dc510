// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Provider names are a fixed enumeration — the identity providers the sign-in
// flow supports. The empty string is reserved for users created directly
// through the API (POST /api/users) rather than through OAuth.
const (
	ProviderGitHub = "github"
	ProviderGoogle = "google"
)

// User represents a registered user account.
//
// Identity comes from a federated OAuth provider (GitHub or Google), so we
// never store passwords for these accounts. The email is the natural key:
// signing in again with the same email — even through a different provider —
// always resolves to the same account. We still generate our own internal
// string ID (xid) so primary keys aren't tied to any provider's numbering.
//
// WHY EMAIL AS THE NATURAL KEY?
// Provider user IDs are stable but provider-scoped. A person who signs in with
// Google today and GitHub tomorrow expects one account, not two. The UNIQUE
// constraint on email in the DB guarantees at most one row per address.
type User struct {
	ID        string    `json:"id"        db:"id"`
	Name      string    `json:"name"      db:"name"`       // Display name from the provider profile
	Email     string    `json:"email"     db:"email"`      // Unique across all users
	AvatarURL string    `json:"image"     db:"avatar_url"` // Profile picture URL
	Provider  string    `json:"provider"  db:"provider"`   // "github" or "google"
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
