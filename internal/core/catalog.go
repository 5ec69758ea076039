package core

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
)

// Category is an entry of the fixed category catalog.
type Category struct {
	Key   string `yaml:"key" json:"key"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// Catalog is the ordered list of categories. Order is significant: the
// monthly summary is emitted in catalog order.
type Catalog []Category

// DefaultCatalog returns the built-in category list.
func DefaultCatalog() Catalog {
	return Catalog{
		{Key: "purchases", Name: "Compras", Color: "#5636D3"},
		{Key: "food", Name: "Alimentação", Color: "#FF872C"},
		{Key: "salary", Name: "Salário", Color: "#12A454"},
		{Key: "car", Name: "Carro", Color: "#E83F5B"},
		{Key: "leisure", Name: "Lazer", Color: "#26195C"},
		{Key: "studies", Name: "Estudos", Color: "#9C001A"},
	}
}

// Lookup returns the category with the given key.
func (c Catalog) Lookup(key string) (Category, bool) {
	for _, cat := range c {
		if cat.Key == key {
			return cat, true
		}
	}
	return Category{}, false
}

// Contains reports whether key is in the catalog.
func (c Catalog) Contains(key string) bool {
	_, ok := c.Lookup(key)
	return ok
}

// Keys returns the category keys in catalog order.
func (c Catalog) Keys() []string {
	keys := make([]string, len(c))
	for i, cat := range c {
		keys[i] = cat.Key
	}
	return keys
}

func (c Catalog) Validate() error {
	if len(c) == 0 {
		return errors.New("catalog is empty")
	}
	seen := make(map[string]struct{}, len(c))
	for i, cat := range c {
		key := strings.TrimSpace(cat.Key)
		if key == "" {
			return fmt.Errorf("category %d: empty key", i)
		}
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("category %q: empty name", key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("category %q: duplicate key", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// ParseCatalog decodes a YAML document of the form
//
//	categories:
//	  - key: food
//	    name: Alimentação
//	    color: "#FF872C"
func ParseCatalog(data []byte) (Catalog, error) {
	var doc struct {
		Categories Catalog `yaml:"categories"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	for i := range doc.Categories {
		doc.Categories[i].Key = strings.TrimSpace(doc.Categories[i].Key)
		doc.Categories[i].Name = strings.TrimSpace(doc.Categories[i].Name)
	}
	if err := doc.Categories.Validate(); err != nil {
		return nil, err
	}
	return doc.Categories, nil
}

// LoadCatalog reads the catalog from path, or returns DefaultCatalog when
// path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog(data)
}
