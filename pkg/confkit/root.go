package confkit

import (
	"errors"
	"os"
	"path/filepath"
)

const maxDepth = 8

// ProjectRoot walks up from the working directory to the nearest directory
// holding go.mod or .git. It returns the working directory when none is found.
func ProjectRoot() (string, error) {
	dirs := searchDirs()
	if len(dirs) == 0 {
		return ".", errors.New("confkit: cannot determine working directory")
	}
	return dirs[len(dirs)-1], nil
}

// MustProjectPath joins the project root with rel and panics when the working
// directory is unavailable.
func MustProjectPath(rel string) string {
	root, err := ProjectRoot()
	if err != nil {
		panic(err)
	}
	return filepath.Join(root, rel)
}

// searchDirs lists the working directory and its parents up to the project
// root, nearest first. Without a marker only the working directory is returned.
func searchDirs() []string {
	wd, err := os.Getwd()
	if err != nil {
		return nil
	}
	var dirs []string
	dir := wd
	for i := 0; i < maxDepth; i++ {
		dirs = append(dirs, dir)
		if exists(filepath.Join(dir, "go.mod")) || exists(filepath.Join(dir, ".git")) {
			return dirs
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return []string{wd}
}

func exists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
