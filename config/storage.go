package config

import "github.com/opencore/gitcore/storage"

const configPath = "config"

// Load reads and decodes the config file from root. A missing file is not
// an error: it returns New() with built-in defaults, matching git's
// behavior for a repository that has never been configured.
func Load(root storage.RootFS) (*Config, error) {
	data, err := root.ReadFile(configPath)
	if err != nil {
		if err == storage.ErrNotExist {
			return New(), nil
		}
		return nil, err
	}
	return Decode(data)
}

// Save encodes c and writes it to root.
func Save(root storage.RootFS, c *Config) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	return root.WriteFile(configPath, data)
}
