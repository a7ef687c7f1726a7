package store

import (
	"path"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

func fileExists(fs billy.Filesystem, filePath string) bool {
	if filePath == "" {
		return false
	}
	info, err := fs.Stat(filePath)
	return err == nil && !info.IsDir()
}

func isDirectory(fs billy.Filesystem, dirPath string) bool {
	info, err := fs.Stat(dirPath)
	return err == nil && info.IsDir()
}

func modTime(fs billy.Filesystem, filePath string) (time.Time, bool) {
	info, err := fs.Stat(filePath)
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func writeBytes(fs billy.Filesystem, data []byte, filePath string) error {
	if err := fs.MkdirAll(path.Dir(filePath), 0755); err != nil {
		return err
	}
	return util.WriteFile(fs, filePath, data, 0644)
}

func readBytes(fs billy.Filesystem, filePath string) ([]byte, error) {
	return util.ReadFile(fs, filePath)
}

// removeIfEmpty deletes a directory only when nothing is left inside it.
func removeIfEmpty(fs billy.Filesystem, dirPath string) error {
	children, err := fs.ReadDir(dirPath)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return nil
	}
	return fs.Remove(dirPath)
}

func moveFile(fs billy.Filesystem, from string, to string) error {
	if err := fs.MkdirAll(path.Dir(to), 0755); err != nil {
		return err
	}
	return fs.Rename(from, to)
}
