package storage

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// renameFile is swapped in tests to simulate a crash before the rename.
var renameFile = os.Rename

// WriteFileAtomic writes data to a temp file beside path, fsyncs it and
// renames it over path. Readers see either the old file or the complete new
// one. The temp file is removed on any failure.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return eris.Wrapf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		return eris.Wrapf(err, "write %s", tmpName)
	}
	if err = tmp.Sync(); err != nil {
		return eris.Wrapf(err, "sync %s", tmpName)
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return eris.Wrapf(err, "close %s", tmpName)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return eris.Wrapf(err, "chmod %s", tmpName)
	}
	if err = renameFile(tmpName, path); err != nil {
		return eris.Wrapf(err, "rename into %s", path)
	}
	syncDir(dir)
	return nil
}

// syncDir persists the directory entry created by a rename. Failure only
// weakens durability, never correctness.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

// isTemp reports whether name is an in-progress WriteFileAtomic temp file.
func isTemp(name string) bool {
	return len(name) > 0 && name[0] == '.'
}
