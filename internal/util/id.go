package util

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random UUID, prefixed with "<prefix>-" when a prefix is given.
func NewID(prefix string) string {
	id := uuid.NewString()
	if prefix == "" {
		return id
	}
	return prefix + "-" + id
}

const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewSlug returns an 8 character lowercase alphanumeric slug.
func NewSlug() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	var b strings.Builder
	for _, c := range buf {
		b.WriteByte(slugAlphabet[int(c)%len(slugAlphabet)])
	}
	return b.String()
}

// RoomForSlug is the realtime room name for a board slug.
func RoomForSlug(slug string) string {
	return "board:" + slug
}
