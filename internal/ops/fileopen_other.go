//go:build !unix

package ops

import (
	"os"

	"github.com/heartsync/heartsync/internal/errors"
)

// openFileNoFollow opens a backup file for writing. Without O_NOFOLLOW
// (Windows, wasm) this relies on ValidatePath having refused symlinks.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(path, flag, perm)
}

// openFileNoFollowRead opens a backup file for reading.
func openFileNoFollowRead(path string) (*os.File, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NewNotFound("file", path)
	}
	return f, err
}
