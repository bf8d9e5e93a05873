// Package settings holds the guild-level configuration that admins change at
// runtime: which channel receives announcements, which categories hold live
// and archived CTF channels, and which roles gate admin actions.
//
// The set of keys is a closed enumeration. Each key knows the kind of Discord
// object its value must point at, so a value can be validated before it is
// persisted. Readers get an immutable Snapshot through an atomic pointer
// swap; there is no field-by-field mutation under a lock.
package settings

import (
	"fmt"
	"sync/atomic"
)

// Key identifies one configurable setting.
type Key int

const (
	KeyAnnouncementChannel Key = iota
	KeyCTFCategory
	KeyArchiveCategory
	KeyPMRole
	KeyMemberRole
)

// Keys lists every configurable setting, in display order.
var Keys = []Key{
	KeyAnnouncementChannel,
	KeyCTFCategory,
	KeyArchiveCategory,
	KeyPMRole,
	KeyMemberRole,
}

// ObjectKind is the kind of Discord object a setting's value must reference.
type ObjectKind int

const (
	KindTextChannel ObjectKind = iota
	KindCategory
	KindRole
)

func (k Key) String() string {
	switch k {
	case KeyAnnouncementChannel:
		return "announcement_channel"
	case KeyCTFCategory:
		return "ctf_category"
	case KeyArchiveCategory:
		return "archive_category"
	case KeyPMRole:
		return "pm_role"
	case KeyMemberRole:
		return "member_role"
	}
	return fmt.Sprintf("settings.Key(%d)", int(k))
}

func (k Key) Kind() ObjectKind {
	switch k {
	case KeyAnnouncementChannel:
		return KindTextChannel
	case KeyCTFCategory, KeyArchiveCategory:
		return KindCategory
	default:
		return KindRole
	}
}

// Description is the admin-facing explanation of a key.
func (k Key) Description() string {
	switch k {
	case KeyAnnouncementChannel:
		return "The channel which announcements send to"
	case KeyCTFCategory:
		return "The category which CTF channels belong to"
	case KeyArchiveCategory:
		return "The category which archived CTF channels belong to"
	case KeyPMRole:
		return "The role for project managers"
	case KeyMemberRole:
		return "The role for members"
	}
	return ""
}

// ParseKey maps a key name back to its Key.
func ParseKey(name string) (Key, error) {
	for _, k := range Keys {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown setting %q", name)
}

// Snapshot is one immutable view of all settings. Empty string = unset.
type Snapshot struct {
	AnnouncementChannelID string
	CTFCategoryID         string
	ArchiveCategoryID     string
	PMRoleID              string
	MemberRoleID          string
}

// Value returns the snapshot's value for key.
func (s Snapshot) Value(key Key) string {
	switch key {
	case KeyAnnouncementChannel:
		return s.AnnouncementChannelID
	case KeyCTFCategory:
		return s.CTFCategoryID
	case KeyArchiveCategory:
		return s.ArchiveCategoryID
	case KeyPMRole:
		return s.PMRoleID
	case KeyMemberRole:
		return s.MemberRoleID
	}
	return ""
}

// With returns a copy of the snapshot with key set to value.
func (s Snapshot) With(key Key, value string) Snapshot {
	switch key {
	case KeyAnnouncementChannel:
		s.AnnouncementChannelID = value
	case KeyCTFCategory:
		s.CTFCategoryID = value
	case KeyArchiveCategory:
		s.ArchiveCategoryID = value
	case KeyPMRole:
		s.PMRoleID = value
	case KeyMemberRole:
		s.MemberRoleID = value
	}
	return s
}

// Status is one row of the admin settings overview.
type Status struct {
	Key         Key
	Description string
	Value       string
	Name        string // resolved object name, "" when invalid/unset
	OK          bool
}

// Resolver checks that an id references a live Discord object of the given
// kind and returns its display name.
type Resolver interface {
	Resolve(kind ObjectKind, id string) (name string, ok bool)
}

// Validate checks value against key's object kind and returns the resolved
// object name.
func Validate(key Key, value string, r Resolver) (string, error) {
	if value == "" {
		return "", fmt.Errorf("setting %s: value is empty", key)
	}
	name, ok := r.Resolve(key.Kind(), value)
	if !ok {
		return "", fmt.Errorf("setting %s: %q does not reference a valid object", key, value)
	}
	return name, nil
}

// Store owns the current Snapshot. Reads never block writers; an update
// replaces the whole snapshot in one pointer swap.
type Store struct {
	current atomic.Pointer[Snapshot]
}

func NewStore(snap Snapshot) *Store {
	s := &Store{}
	s.current.Store(&snap)
	return s
}

// Current returns the latest snapshot.
func (s *Store) Current() Snapshot {
	return *s.current.Load()
}

// Swap installs snap as the current snapshot.
func (s *Store) Swap(snap Snapshot) {
	s.current.Store(&snap)
}
