package pile

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// lockFile takes a non-blocking exclusive flock on path+".lock".
func lockFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path+".lock", os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "pile: open lock file")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, errors.Wrap(ErrLocked, path)
		}
		return nil, errors.Wrap(err, "pile: flock")
	}
	return f, nil
}

// unlockFile releases and closes a lock taken by lockFile.
func unlockFile(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		f.Close()
		return errors.Wrap(err, "pile: funlock")
	}
	return f.Close()
}
