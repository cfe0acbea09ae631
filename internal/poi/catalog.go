package poi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Ch00k/cvs-compass/internal/geo"
)

// catalogNamespace seeds the name-based ids of catalog stores without one
var catalogNamespace = uuid.MustParse("6f1c8a52-3f0e-4d39-9a51-0c7e2b1d4a77")

// CatalogStore is one store record in a catalog file
type CatalogStore struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Brand       string  `yaml:"brand" json:"brand"`
	Address     string  `yaml:"address" json:"address"`
	RoadAddress string  `yaml:"road_address" json:"road_address"`
	Phone       string  `yaml:"phone" json:"phone"`
	Latitude    float64 `yaml:"latitude" json:"latitude"`
	Longitude   float64 `yaml:"longitude" json:"longitude"`
	// Active defaults to true when omitted
	Active *bool `yaml:"active" json:"active"`
}

type catalogFile struct {
	Stores []CatalogStore `yaml:"stores" json:"stores"`
}

// Catalog serves stores from a local YAML or JSON file. The file is re-read
// when its modification time or size changes.
type Catalog struct {
	path string

	mu      sync.Mutex
	items   []Item
	modTime int64
	size    int64
}

// NewCatalog creates a catalog backed by path
func NewCatalog(path string) *Catalog {
	return &Catalog{path: path}
}

// Path returns the backing file
func (c *Catalog) Path() string { return c.path }

// Name implements Searcher
func (c *Catalog) Name() string { return "catalog" }

// Load reads and decodes the catalog file
func (c *Catalog) Load() ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat catalog: %w", err)
	}
	if c.items != nil && info.ModTime().UnixNano() == c.modTime && info.Size() == c.size {
		return c.items, nil
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	items, err := ParseCatalog(data, strings.ToLower(filepath.Ext(c.path)) == ".json")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.path, err)
	}

	c.items = items
	c.modTime = info.ModTime().UnixNano()
	c.size = info.Size()
	return items, nil
}

// ParseCatalog decodes catalog data. Inactive stores are skipped and stores
// without an id get one derived from their name and coordinates.
func ParseCatalog(data []byte, isJSON bool) ([]Item, error) {
	var file catalogFile
	var err error
	if isJSON {
		err = json.Unmarshal(data, &file)
	} else {
		err = yaml.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	items := make([]Item, 0, len(file.Stores))
	for i, s := range file.Stores {
		if s.Active != nil && !*s.Active {
			continue
		}
		if strings.TrimSpace(s.Name) == "" {
			return nil, fmt.Errorf("store %d: missing name", i)
		}
		loc := geo.Location{Latitude: s.Latitude, Longitude: s.Longitude}
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("store %q: %w", s.Name, err)
		}

		id := s.ID
		if id == "" {
			id = uuid.NewSHA1(catalogNamespace, []byte(s.Name+"@"+loc.String())).String()
		}
		brand := s.Brand
		if brand == "" {
			brand = leadingToken(s.Name)
		}

		items = append(items, Item{
			ID:          "catalog:" + id,
			Name:        s.Name,
			Address:     s.Address,
			RoadAddress: s.RoadAddress,
			Phone:       s.Phone,
			Brand:       brand,
			Location:    loc,
			Source:      "catalog",
		})
	}
	return items, nil
}

// SearchNearby implements Searcher
func (c *Catalog) SearchNearby(ctx context.Context, q Query) ([]Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := c.Load()
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(all))
	for i, item := range all {
		d := geo.Distance(q.Center, item.Location)
		item.Distance = &d
		items[i] = item
	}
	SortByDistance(items)
	return filter(items, q), nil
}
