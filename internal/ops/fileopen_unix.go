//go:build unix

package ops

import (
	stderrors "errors"
	"os"

	"golang.org/x/sys/unix"

	"github.com/heartsync/heartsync/internal/errors"
)

// openFileNoFollow opens a backup file for writing, refusing a symlinked
// final component. Parent directories are checked by ValidatePath.
func openFileNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := unix.Open(path, flag|unix.O_NOFOLLOW|unix.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, unix.ELOOP) {
			return nil, errors.NewInvalidRequest("cannot write to symlink")
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}

// openFileNoFollowRead opens a backup file for reading, refusing a symlinked
// final component.
func openFileNoFollowRead(path string) (*os.File, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case stderrors.Is(err, unix.ELOOP):
			return nil, errors.NewInvalidRequest("cannot read from symlink")
		case stderrors.Is(err, unix.ENOENT):
			return nil, errors.NewNotFound("file", path)
		}
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(fd), path), nil
}
