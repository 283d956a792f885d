// Package shipclass provides the static per-class vessel tables.
package shipclass

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed classes.yaml
var defaultsYAML []byte

// ErrUnknownClass is returned when a class name is not in the catalog.
var ErrUnknownClass = errors.New("unknown ship class")

// Class holds the maxima and physics limits shared by every vessel of a class.
type Class struct {
	Name                   string  `yaml:"-"`
	MaxHull                float64 `yaml:"max_hull"`
	MaxShield              float64 `yaml:"max_shield"`
	MaxWeaponEnergy        float64 `yaml:"max_weapon_energy"`
	MaxAfterburnerFuel     float64 `yaml:"max_afterburner_fuel"`
	MaxVelocity            float64 `yaml:"max_velocity"`
	MaxAfterburnerVelocity float64 `yaml:"max_afterburner_velocity"`
	Acceleration           float64 `yaml:"acceleration"`
	Mass                   float64 `yaml:"mass"`
	Faction                string  `yaml:"faction"`
}

func (c Class) validate() error {
	switch {
	case c.MaxHull <= 0:
		return fmt.Errorf("%s: max_hull must be positive", c.Name)
	case c.MaxShield < 0, c.MaxWeaponEnergy < 0, c.MaxAfterburnerFuel < 0:
		return fmt.Errorf("%s: maxima must not be negative", c.Name)
	case c.MaxVelocity < 0 || c.MaxAfterburnerVelocity < c.MaxVelocity:
		return fmt.Errorf("%s: afterburner velocity must be at least max_velocity", c.Name)
	}
	return nil
}

// Catalog maps class names to their tables.
type Catalog struct {
	classes map[string]Class
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded ship classes: %v", err))
	}
	return c
}

// Load reads the embedded classes and overlays the classes in path, if set.
// A class in the file replaces the built-in class of the same name.
func Load(path string) (*Catalog, error) {
	c := &Catalog{classes: make(map[string]Class)}
	if err := c.merge(defaultsYAML); err != nil {
		return nil, fmt.Errorf("parsing embedded classes: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading ship classes: %w", err)
		}
		if err := c.merge(data); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return c, nil
}

func (c *Catalog) merge(data []byte) error {
	var raw map[string]Class
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	for name, class := range raw {
		class.Name = name
		if err := class.validate(); err != nil {
			return err
		}
		c.classes[strings.ToLower(name)] = class
	}
	return nil
}

// Get looks a class up by name, ignoring case.
func (c *Catalog) Get(name string) (Class, error) {
	class, ok := c.classes[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Class{}, fmt.Errorf("%w: %q", ErrUnknownClass, name)
	}
	return class, nil
}

// Names returns the class names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.classes))
	for _, class := range c.classes {
		out = append(out, class.Name)
	}
	sort.Strings(out)
	return out
}
