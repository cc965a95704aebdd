package database

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MenuSeed is the menus file: menus with nested items plus location assignments.
//
//	menus:
//	  - name: Main
//	    slug: main
//	    items:
//	      - title: Home
//	        url: /
//	      - title: About
//	        post: about
//	        items:
//	          - title: Team
//	            post: team
//	locations:
//	  primary: main
type MenuSeed struct {
	Menus     []MenuSeedMenu    `yaml:"menus"`
	Locations map[string]string `yaml:"locations"`
}

type MenuSeedMenu struct {
	Name  string         `yaml:"name"`
	Slug  string         `yaml:"slug"`
	Items []MenuSeedItem `yaml:"items"`
}

type MenuSeedItem struct {
	Title    string         `yaml:"title"`
	URL      string         `yaml:"url"`
	Classes  []string       `yaml:"classes"`
	Post     string         `yaml:"post"`      // slug of the linked post
	ObjectID int64          `yaml:"object_id"` // explicit object reference
	Object   string         `yaml:"object"`    // post, page, category, custom
	Items    []MenuSeedItem `yaml:"items"`
}

// LoadMenuSeed reads a menus file. A missing file is not an error and gives nil.
func LoadMenuSeed(path string) (*MenuSeed, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read menus file: %w", err)
	}

	var seed MenuSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i := range seed.Menus {
		if seed.Menus[i].Name == "" {
			seed.Menus[i].Name = seed.Menus[i].Slug
		}
	}

	return &seed, nil
}

func (s *MenuSeed) Validate() error {
	slugs := make(map[string]bool, len(s.Menus))
	for i, m := range s.Menus {
		if m.Slug == "" {
			return fmt.Errorf("menu at index %d has no slug", i)
		}
		if slugs[m.Slug] {
			return fmt.Errorf("duplicate menu slug %s", m.Slug)
		}
		slugs[m.Slug] = true
	}

	for location, slug := range s.Locations {
		if location == "" || slug == "" {
			return fmt.Errorf("location assignments need both a location and a menu slug")
		}
	}

	return nil
}
