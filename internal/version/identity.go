package version

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	dberrors "git.home.luguber.info/inful/driverd/internal/foundation/errors"
)

// Identity is the daemon's descriptor, read once at process start.
type Identity struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

func (i Identity) String() string {
	if i.Version == "" {
		return i.Name
	}
	return i.Name + "@" + i.Version
}

// LoadIdentity reads the identity file at path. YAML and JSON are both accepted.
// Any failure is returned as a fatal IdentityReadError.
func LoadIdentity(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, dberrors.IdentityReadError(path, err)
	}

	var raw struct {
		Name    string    `yaml:"name"`
		Version yaml.Node `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Identity{}, dberrors.IdentityReadError(path, err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		return Identity{}, dberrors.IdentityReadError(path, fmt.Errorf("missing name"))
	}

	return Identity{
		Name:    strings.TrimSpace(raw.Name),
		Version: strings.TrimSpace(raw.Version.Value),
	}, nil
}
