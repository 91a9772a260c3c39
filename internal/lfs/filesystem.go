package lfs

import (
	"errors"
	"os"
	"syscall"
)

// copyFile copies the contents of srcPath into a new file at destPath.
func copyFile(srcPath string, destPath string) error {
	srcFile, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	destFile, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = destFile.ReadFrom(srcFile)
	return err
}

// moveFile renames srcPath to destPath. Rename is atomic within a filesystem;
// if the paths live on different filesystems it falls back to copy+remove.
func moveFile(srcPath string, destPath string) error {
	if err := os.Rename(srcPath, destPath); err != nil {

		var linkErr *os.LinkError
		if errors.As(err, &linkErr) && linkErr.Err == syscall.EXDEV {
			if copyErr := copyFile(srcPath, destPath); copyErr != nil {
				return copyErr
			}

			// Best-effort cleanup of the source file; ignore ENOENT in case
			// something else already moved or removed it.
			if rmErr := os.Remove(srcPath); rmErr != nil && !os.IsNotExist(rmErr) {
				return rmErr
			}
			return nil
		}
		return err
	}

	return nil
}
