package confkit

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
)

var dotenvOnce sync.Once

// LoadDotenvOnce loads .env files once per process.
//
//   - NO_DOTENV=1 disables loading.
//   - ENV_FILE names an explicit file.
//   - Otherwise every .env from the working directory up to the project root is
//     read, nearest first. Existing variables win unless DOTENV_OVERLOAD=1.
func LoadDotenvOnce() {
	dotenvOnce.Do(loadDotenv)
}

func loadDotenv() {
	if os.Getenv("NO_DOTENV") == "1" {
		return
	}
	load := godotenv.Load
	if os.Getenv("DOTENV_OVERLOAD") == "1" {
		load = godotenv.Overload
	}
	if file := os.Getenv("ENV_FILE"); file != "" {
		_ = load(file)
		return
	}
	for _, dir := range searchDirs() {
		if candidate := filepath.Join(dir, ".env"); exists(candidate) {
			_ = load(candidate)
		}
	}
}
