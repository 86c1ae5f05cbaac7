// Package access decides what a user may do with a todo list. Item
// operations are authorized against the item's parent list.
package access

import (
	"to-dogether/internal/apperr"
)

// Decision is the outcome of Decide, ordered from least to most access.
type Decision uint8

const (
	DeniedNotPaired Decision = iota
	DeniedNoAccess
	ReadOnly
	ReadWrite
)

func (d Decision) String() string {
	switch d {
	case DeniedNotPaired:
		return "DeniedNotPaired"
	case DeniedNoAccess:
		return "DeniedNoAccess"
	case ReadOnly:
		return "ReadOnly"
	case ReadWrite:
		return "ReadWrite"
	}
	return "invalid"
}

// Subject is the requesting user.
type Subject struct {
	UserID   int
	CoupleID *int
}

// Resource is a todo list as seen by the authorizer.
type Resource struct {
	OwnerID       int
	OwnerCoupleID *int
	IsShared      bool
}

// Decide has no side effects. An owner without a couple cannot be reached
// by anyone else, and an unpaired requester is denied before ownership is
// considered.
func Decide(s Subject, r Resource) Decision {
	if s.CoupleID == nil {
		return DeniedNotPaired
	}
	if r.OwnerCoupleID == nil || *r.OwnerCoupleID != *s.CoupleID {
		return DeniedNoAccess
	}
	if s.UserID == r.OwnerID || r.IsShared {
		return ReadWrite
	}
	return ReadOnly
}

// CanRead reports whether the list and its items may be viewed.
func (d Decision) CanRead() bool { return d == ReadOnly || d == ReadWrite }

// CanWrite reports whether the list and its items may be changed.
func (d Decision) CanWrite() bool { return d == ReadWrite }

// RequireRead returns nil when the decision allows reading.
func RequireRead(d Decision) error {
	switch {
	case d == DeniedNotPaired:
		return apperr.ErrNotPaired
	case !d.CanRead():
		return apperr.ErrNoAccess
	}
	return nil
}

// RequireWrite returns nil only for ReadWrite. Mutation routes treat
// ReadOnly as NoAccess.
func RequireWrite(d Decision) error {
	switch {
	case d == DeniedNotPaired:
		return apperr.ErrNotPaired
	case !d.CanWrite():
		return apperr.ErrNoAccess
	}
	return nil
}
