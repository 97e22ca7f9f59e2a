package duplicity

import (
	"errors"
	"io"
	"os"

	"github.com/sharkusmanch/duplicity-runner/internal/domain"
)

// OSFS is the os-backed filesystem probe.
type OSFS struct{}

// Exists reports whether the path exists.
func (OSFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsReadable reports whether the path can be opened for reading.
func (OSFS) IsReadable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}

// IsEmpty reports whether the directory holds no entries. The answer is
// unknown (non-nil error) when the directory cannot be read.
func (OSFS) IsEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// Ensure OSFS implements domain.FS.
var _ domain.FS = OSFS{}
