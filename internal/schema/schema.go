// Package schema defines the entities mirrored between the remote
// record store and the local cache database.
//
// All remote-sourced entities carry a server-assigned opaque id that is
// stable across sync cycles. Remote variants additionally carry an
// isDeleted soft-delete flag; rows marked deleted are hard-deleted from
// the local cache on the next sync pass.
package schema

import (
	"fmt"
	"time"
)

// User mirrors the remote users collection. No password material is
// ever stored locally.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks required fields before a local write.
func (u *User) Validate() error {
	if u.ID == "" {
		return fmt.Errorf("id is required")
	}
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	return nil
}

// RemoteUser is the wire form of a user in a sync response.
type RemoteUser struct {
	User
	IsDeleted bool `json:"isDeleted"`
}

// Family is a group of users sharing locations with each other.
// CreatedBy is empty when the creating user has been deleted.
type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks required fields before a local write.
func (f *Family) Validate() error {
	if f.ID == "" {
		return fmt.Errorf("id is required")
	}
	if f.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// RemoteFamily is the wire form of a family in a sync response.
type RemoteFamily struct {
	Family
	IsDeleted bool `json:"isDeleted"`
}

// FamilyMember joins a user to a family. CreatedAt is the canonical
// join timestamp.
type FamilyMember struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Family    string    `json:"family"`
	CreatedAt time.Time `json:"createdAt"`
}

// Coordinates is a latitude/longitude pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Location is a single position sample for a user. Rows are append-only
// and immutable once written; the current location of a user is the row
// with the maximum CreatedAt.
type Location struct {
	ID          string      `json:"id"`
	User        string      `json:"user"`
	Coordinates Coordinates `json:"coordinates"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Validate checks required fields before a local write.
func (l *Location) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("id is required")
	}
	if l.User == "" {
		return fmt.Errorf("user is required")
	}
	return nil
}

// Invitation is a pending request for a user to join a family. Served
// straight from the remote, never cached locally.
type Invitation struct {
	ID         string    `json:"id"`
	FamilyName string    `json:"familyName"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SyncData is one incremental pull: every remote entity (including
// soft-deleted ones) created or updated after the requested watermark.
type SyncData struct {
	Users         []RemoteUser   `json:"users"`
	Families      []RemoteFamily `json:"families"`
	FamilyMembers []FamilyMember `json:"familyMembers"`
	Locations     []Location     `json:"locations"`
}

// MemberLocation is the read model for the family map: a member's
// latest known position.
type MemberLocation struct {
	UserID      string      `json:"userId"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Coordinates Coordinates `json:"coordinates"`
	RecordedAt  time.Time   `json:"recordedAt"`
}
