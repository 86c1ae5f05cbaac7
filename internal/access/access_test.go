package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"to-dogether/internal/apperr"
)

func ptr(v int) *int { return &v }

func TestDecide(t *testing.T) {
	alice := Subject{UserID: 1, CoupleID: ptr(10)}
	bob := Subject{UserID: 2, CoupleID: ptr(10)}
	mallory := Subject{UserID: 3, CoupleID: ptr(20)}
	loner := Subject{UserID: 4}

	private := Resource{OwnerID: 1, OwnerCoupleID: ptr(10)}
	shared := Resource{OwnerID: 1, OwnerCoupleID: ptr(10), IsShared: true}

	tests := []struct {
		name string
		s    Subject
		r    Resource
		want Decision
	}{
		{"owner of private list", alice, private, ReadWrite},
		{"partner on private list", bob, private, ReadOnly},
		{"partner on shared list", bob, shared, ReadWrite},
		{"other couple", mallory, shared, DeniedNoAccess},
		{"unpaired requester", loner, shared, DeniedNotPaired},
		{"unpaired requester owns list", Subject{UserID: 1}, Resource{OwnerID: 1}, DeniedNotPaired},
		{"owner has no couple", bob, Resource{OwnerID: 1, IsShared: true}, DeniedNoAccess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.s, tt.r))
		})
	}
}

func TestRequire(t *testing.T) {
	assert.NoError(t, RequireWrite(ReadWrite))
	assert.ErrorIs(t, RequireWrite(ReadOnly), apperr.ErrNoAccess)
	assert.ErrorIs(t, RequireWrite(DeniedNoAccess), apperr.ErrNoAccess)
	assert.ErrorIs(t, RequireWrite(DeniedNotPaired), apperr.ErrNotPaired)

	assert.NoError(t, RequireRead(ReadOnly))
	assert.NoError(t, RequireRead(ReadWrite))
	assert.ErrorIs(t, RequireRead(DeniedNoAccess), apperr.ErrNoAccess)
	assert.ErrorIs(t, RequireRead(DeniedNotPaired), apperr.ErrNotPaired)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "ReadOnly", ReadOnly.String())
	assert.Equal(t, "invalid", Decision(9).String())
}

func TestDecisionCapabilities(t *testing.T) {
	tests := []struct {
		d           Decision
		read, write bool
	}{
		{DeniedNotPaired, false, false},
		{DeniedNoAccess, false, false},
		{ReadOnly, true, false},
		{ReadWrite, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			assert.Equal(t, tt.read, tt.d.CanRead())
			assert.Equal(t, tt.write, tt.d.CanWrite())
		})
	}
}
