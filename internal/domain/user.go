// Package domain contains the core business entities for the skill-swap marketplace.
// These are pure Go structs with no external dependencies, representing
// users, swap requests, feedback and the platform broadcast message.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTheme is the UI theme assigned to new users.
const DefaultTheme = "indigo"

// User represents a registered member of the marketplace.
type User struct {
	// ID is the unique identifier for the user (generated at creation, immutable).
	ID string `json:"id"`

	// Name is the unique, case-sensitive login and display name.
	Name string `json:"name"`

	// PasswordHash is the opaque credential handle produced by the password hasher.
	// This must never be exposed in API responses.
	PasswordHash string `json:"-"`

	Location     string `json:"location"`
	Availability string `json:"availability"`

	// SkillsOffered and SkillsWanted keep the order in which they were entered.
	// Duplicates are permitted.
	SkillsOffered []string `json:"skillsOffered"`
	SkillsWanted  []string `json:"skillsWanted"`

	// IsPublic gates visibility in the directory.
	IsPublic bool `json:"isPublic"`

	// IsAdmin grants moderation capabilities.
	IsAdmin bool `json:"isAdmin"`

	// IsBanned hides the user from the directory regardless of IsPublic.
	// Banned users can still authenticate and see their own data.
	IsBanned bool `json:"isBanned"`

	// ProfilePhotoRef is an optional reference into the blob store.
	ProfilePhotoRef string `json:"-"`

	Theme string `json:"theme"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileFields carries the optional profile data supplied at signup.
type ProfileFields struct {
	Location      string
	Availability  string
	SkillsOffered []string
	SkillsWanted  []string
	// IsPublic defaults to true when nil.
	IsPublic *bool
}

// NewUser creates a new User with default flags.
func NewUser(name, passwordHash string, fields ProfileFields, now time.Time) *User {
	isPublic := true
	if fields.IsPublic != nil {
		isPublic = *fields.IsPublic
	}

	return &User{
		ID:            uuid.NewString(),
		Name:          name,
		PasswordHash:  passwordHash,
		Location:      fields.Location,
		Availability:  fields.Availability,
		SkillsOffered: cloneSkills(fields.SkillsOffered),
		SkillsWanted:  cloneSkills(fields.SkillsWanted),
		IsPublic:      isPublic,
		IsAdmin:       false,
		IsBanned:      false,
		Theme:         DefaultTheme,
		CreatedAt:     now.UTC(),
	}
}

// IsDiscoverable reports whether the user may appear in directory results.
func (u *User) IsDiscoverable() bool {
	return u.IsPublic && !u.IsBanned
}

// MatchesSearch reports whether term is a case-insensitive substring of the
// user's name or of any offered or wanted skill. An empty term matches everyone.
func (u *User) MatchesSearch(term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)

	if strings.Contains(strings.ToLower(u.Name), needle) {
		return true
	}
	for _, s := range u.SkillsOffered {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	for _, s := range u.SkillsWanted {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// Apply merges the fields present in patch into the user.
// Name and photo changes are applied here too; uniqueness and uploads are
// the caller's responsibility.
func (u *User) Apply(patch ProfilePatch) {
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Location != nil {
		u.Location = *patch.Location
	}
	if patch.Availability != nil {
		u.Availability = *patch.Availability
	}
	if patch.SkillsOffered != nil {
		u.SkillsOffered = cloneSkills(*patch.SkillsOffered)
	}
	if patch.SkillsWanted != nil {
		u.SkillsWanted = cloneSkills(*patch.SkillsWanted)
	}
	if patch.IsPublic != nil {
		u.IsPublic = *patch.IsPublic
	}
	if patch.Theme != nil {
		u.Theme = *patch.Theme
	}
	if patch.PhotoRef != nil {
		u.ProfilePhotoRef = *patch.PhotoRef
	}
}

// cloneSkills copies a skill list, normalizing nil to an empty slice so that
// JSON responses always carry an array.
func cloneSkills(skills []string) []string {
	out := make([]string, len(skills))
	copy(out, skills)
	return out
}
