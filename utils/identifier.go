package utils

import (
	"github.com/rs/xid"
)

// UniqueID returns an ID (not UUID) which can be globally unique in a
// distributed environment
func UniqueID() string {
	return xid.New().String()
}
