// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package ftok derives System V IPC keys from the on-disk identity of a
// file, so that every process opening the same file arrives at the same key
// without having to communicate.
package ftok

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/juju/errors"

	"github.com/juju/ftoklock/internal/sysv"
)

// ErrUnresolvable is returned when the identity's path cannot be resolved
// to a filesystem entry.
const ErrUnresolvable = errors.ConstError("resource path cannot be resolved")

// Identity names a shared resource by its path and a discriminant that
// separates independent users of the same file.
type Identity struct {
	// Path is the path of the file the lock protects.
	Path string

	// ProjectID separates independent key spaces for the same file, like
	// the proj_id argument of ftok(3). It must be in the range 1-255.
	ProjectID int
}

// Validate checks that the identity can be turned into a key.
func (i Identity) Validate() error {
	if i.Path == "" {
		return errors.NotValidf("empty Path")
	}
	if i.ProjectID < 1 || i.ProjectID > 255 {
		return errors.NotValidf("ProjectID %d", i.ProjectID)
	}
	return nil
}

// DeriveKey returns the key for the identity. The key depends only on the
// device and inode the path resolves to, so a file that is renamed keeps
// its key while a file recreated at the same path gets the key of its new
// inode.
func DeriveKey(identity Identity) (sysv.Key, error) {
	if err := identity.Validate(); err != nil {
		return 0, errors.Trace(err)
	}
	dev, ino, err := fileID(identity.Path)
	if err != nil {
		return 0, errors.Annotatef(errors.WithType(err, ErrUnresolvable), "deriving key for %q", identity.Path)
	}
	return keyFor(dev, ino, identity.ProjectID), nil
}

// keyFor packs the project id into the top byte, like ftok(3), and fills
// the low 24 bits from a hash of the file id rather than truncating it, so
// that inodes differing only in their high bits do not collide.
func keyFor(dev, ino uint64, projectID int) sysv.Key {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], dev)
	binary.LittleEndian.PutUint64(buf[8:], ino)
	low := uint32(xxhash.Sum64(buf[:])) & 0x00ffffff
	return sysv.Key(int32(uint32(projectID&0xff)<<24 | low))
}
