package config

import (
	"io"

	"github.com/go-git/gcfg"
)

// Decoder reads the git-config/INI dialect into a Config tree.
type Decoder struct {
	io.Reader
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r}
}

// Decode parses the full input and populates config, preserving section,
// subsection and option declaration order.
func (d *Decoder) Decode(config *Config) error {
	cb := func(s, ss, k, v string, _ bool) error {
		if ss == "" && k == "" {
			config.Section(s)
			return nil
		}
		if ss != "" && k == "" {
			config.Section(s).Subsection(ss)
			return nil
		}
		config.AddOption(s, ss, k, v)
		return nil
	}
	return gcfg.ReadWithCallback(d, cb)
}
