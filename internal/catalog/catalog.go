// Package catalog holds the curated topic grids shown on the home page.
// Selecting an item submits its query as a search.
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

// Item is one selectable topic.
type Item struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Subtitle    string `yaml:"subtitle,omitempty" json:"subtitle,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Icon        string `yaml:"icon,omitempty" json:"icon,omitempty"`
	Query       string `yaml:"query,omitempty" json:"query"`
}

// Grid is a titled group of items.
type Grid struct {
	ID            string `yaml:"id" json:"id"`
	Title         string `yaml:"title" json:"title"`
	QueryTemplate string `yaml:"query_template,omitempty" json:"-"`
	Items         []Item `yaml:"items" json:"items"`
}

// Catalog is an ordered set of grids.
type Catalog struct {
	Grids []Grid `yaml:"grids" json:"grids"`

	index map[string]int
}

// Default parses the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or the embedded catalog when path is empty.
func Load(path string) (*Catalog, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) // #nosec G304 -- Catalog path is user-provided
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog. Items without a query get
// one from the grid's query_template, or their title.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c.index = make(map[string]int, len(c.Grids))
	for gi := range c.Grids {
		grid := &c.Grids[gi]
		grid.ID = strings.TrimSpace(grid.ID)
		if grid.ID == "" {
			return nil, fmt.Errorf("grid %d missing id", gi)
		}
		if _, dup := c.index[grid.ID]; dup {
			return nil, fmt.Errorf("duplicate grid id %q", grid.ID)
		}
		c.index[grid.ID] = gi

		seen := make(map[string]struct{}, len(grid.Items))
		for ii := range grid.Items {
			item := &grid.Items[ii]
			item.ID = strings.TrimSpace(item.ID)
			item.Title = strings.TrimSpace(item.Title)
			if item.ID == "" || item.Title == "" {
				return nil, fmt.Errorf("grid %s item %d needs id and title", grid.ID, ii)
			}
			if _, dup := seen[item.ID]; dup {
				return nil, fmt.Errorf("grid %s: duplicate item id %q", grid.ID, item.ID)
			}
			seen[item.ID] = struct{}{}

			item.Query = strings.TrimSpace(item.Query)
			if item.Query == "" {
				item.Query = queryFor(grid.QueryTemplate, item.Title)
			}
		}
	}
	return &c, nil
}

func queryFor(template, title string) string {
	if strings.TrimSpace(template) == "" {
		return title
	}
	return strings.ReplaceAll(template, "{{title}}", title)
}

// Grid returns the grid with the given id.
func (c *Catalog) Grid(id string) (Grid, bool) {
	if c == nil {
		return Grid{}, false
	}
	idx, ok := c.index[strings.TrimSpace(id)]
	if !ok {
		return Grid{}, false
	}
	return c.Grids[idx], true
}

// Item returns one item of one grid.
func (c *Catalog) Item(gridID, itemID string) (Item, bool) {
	grid, ok := c.Grid(gridID)
	if !ok {
		return Item{}, false
	}
	itemID = strings.TrimSpace(itemID)
	for _, item := range grid.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return Item{}, false
}

// Resolve maps a "grid/item" reference to the item's query.
func (c *Catalog) Resolve(ref string) (string, error) {
	gridID, itemID, ok := strings.Cut(strings.TrimSpace(ref), "/")
	if !ok || gridID == "" || itemID == "" {
		return "", fmt.Errorf("invalid topic %q (want grid/item)", ref)
	}
	item, ok := c.Item(gridID, itemID)
	if !ok {
		return "", fmt.Errorf("unknown topic %q", ref)
	}
	return item.Query, nil
}
