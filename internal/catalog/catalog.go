package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Tier string

const (
	TierLegendary  Tier = "legendary"
	TierMythical   Tier = "mythical"
	TierUltraBeast Tier = "ultrabeast"
	TierEvent      Tier = "event"
)

type file struct {
	Legendary  []string            `yaml:"legendary"`
	Mythical   []string            `yaml:"mythical"`
	UltraBeast []string            `yaml:"ultrabeast"`
	Event      []string            `yaml:"event"`
	Aliases    map[string][]string `yaml:"aliases"`
}

// Catalog answers rarity and alias lookups by normalized pokemon name.
type Catalog struct {
	tiers   map[Tier]map[string]struct{}
	aliases map[string][]string
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog.yaml: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path yields the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func Parse(raw []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	c := &Catalog{
		tiers:   make(map[Tier]map[string]struct{}, 4),
		aliases: make(map[string][]string, len(f.Aliases)),
	}
	c.addTier(TierLegendary, f.Legendary)
	c.addTier(TierMythical, f.Mythical)
	c.addTier(TierUltraBeast, f.UltraBeast)
	c.addTier(TierEvent, f.Event)
	for name, list := range f.Aliases {
		key := Normalize(name)
		for _, a := range list {
			c.aliases[key] = append(c.aliases[key], Normalize(a))
		}
	}
	return c, nil
}

func (c *Catalog) addTier(t Tier, names []string) {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[Normalize(n)] = struct{}{}
	}
	c.tiers[t] = set
}

// In reports whether name belongs to the tier.
func (c *Catalog) In(t Tier, name string) bool {
	_, ok := c.tiers[t][Normalize(name)]
	return ok
}

// Rare reports membership in any of legendary, mythical or ultra beast.
func (c *Catalog) Rare(name string) bool {
	return c.In(TierLegendary, name) || c.In(TierMythical, name) || c.In(TierUltraBeast, name)
}

// Aliases returns the normalized aliases registered for name.
func (c *Catalog) Aliases(name string) []string {
	return c.aliases[Normalize(name)]
}

// Normalize lowercases and folds hyphens and repeated spaces.
func Normalize(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "-", " "))
	return strings.Join(strings.Fields(name), " ")
}
