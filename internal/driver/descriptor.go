package driver

import (
	"fmt"
	"strings"
)

// Descriptor identifies a driver candidate before it is instantiated.
type Descriptor struct {
	Name        string            `yaml:"name" json:"name"`
	Version     Version           `yaml:"version" json:"version"`
	Type        string            `yaml:"type,omitempty" json:"type,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Command     string            `yaml:"command,omitempty" json:"command,omitempty"`
	Args        []string          `yaml:"args,omitempty" json:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty" json:"env,omitempty"`

	// Dir is the driver package directory; set by discovery.
	Dir string `yaml:"-" json:"-"`
}

// FactoryKey selects the catalog factory; Type when set, otherwise Name.
func (d Descriptor) FactoryKey() string {
	if d.Type != "" {
		return d.Type
	}
	return d.Name
}

// Validate checks the fields a descriptor must carry.
func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("descriptor has no name")
	}
	return nil
}

func (d Descriptor) String() string {
	if d.Version == "" {
		return d.Name
	}
	return fmt.Sprintf("%s@%s", d.Name, d.Version)
}
