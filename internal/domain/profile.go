package domain

import "io"

// ProfilePatch is the canonical partial update for a user profile.
// A nil field means "keep the current value". Transports decode their
// payloads (JSON or multipart form) into this structure exactly once.
type ProfilePatch struct {
	Name          *string
	Location      *string
	Availability  *string
	SkillsOffered *[]string
	SkillsWanted  *[]string
	IsPublic      *bool
	Theme         *string

	// PhotoRef replaces the photo reference with a caller-supplied value.
	PhotoRef *string

	// Photo is a new photo to upload. It takes precedence over PhotoRef.
	Photo *PhotoUpload
}

// PhotoUpload is raw profile photo content supplied by a client.
type PhotoUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// IsEmpty reports whether the patch carries no changes at all.
func (p ProfilePatch) IsEmpty() bool {
	return p.Name == nil && p.Location == nil && p.Availability == nil &&
		p.SkillsOffered == nil && p.SkillsWanted == nil && p.IsPublic == nil &&
		p.Theme == nil && p.PhotoRef == nil && p.Photo == nil
}
