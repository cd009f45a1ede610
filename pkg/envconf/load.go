// Package envconf fills tagged config structs from the environment, after
// loading an optional .env file.
package envconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// DefaultEnvFile is read by Load when present.
const DefaultEnvFile = ".env"

// EnvFileVar overrides the .env path.
const EnvFileVar = "APP_ENV_FILE"

// Load reads the .env file (if any) and then processes dst with envconfig.
// Variables already set in the environment win over the file.
func Load(dst any) error {
	path := os.Getenv(EnvFileVar)
	if path == "" {
		path = DefaultEnvFile
	}

	return LoadFile(path, dst)
}

// LoadFile is Load with an explicit .env path. A missing file is not an error.
func LoadFile(path string, dst any) error {
	if dst == nil {
		return errors.New("destination is nil")
	}

	if path != "" {
		err := godotenv.Load(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", path, err)
		}
	}

	err := envconfig.Process("", dst)
	if err != nil {
		return fmt.Errorf("process env: %w", err)
	}

	return nil
}
