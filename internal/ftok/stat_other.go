// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

//go:build !unix

package ftok

import "github.com/juju/errors"

func fileID(string) (uint64, uint64, error) {
	return 0, 0, errors.NotSupportedf("file identity")
}
