package users

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	// MinInvitationTokenLength is the floor for token entropy in bytes
	MinInvitationTokenLength = 32
	// DefaultInvitationTTL is how long an invitation link stays valid
	DefaultInvitationTTL = 48 * time.Hour
)

// GenerateInvitationToken returns an opaque URL-safe secret with at least
// MinInvitationTokenLength bytes of entropy; smaller sizes are bumped up.
func GenerateInvitationToken(size int) (string, error) {
	if size < MinInvitationTokenLength {
		size = MinInvitationTokenLength
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate invitation token")
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
