// Package catalog manages the YAML catalog of support resources, prompts
// and guided meditations.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/thebtf/dilse/pkg/models"
)

//go:embed defaults.yml
var defaultsYAML []byte

// SupportCategory groups contacts of one kind of help.
type SupportCategory struct {
	ID          string          `yaml:"id" json:"id"`
	Title       string          `yaml:"title" json:"title"`
	Description string          `yaml:"description" json:"description"`
	Contacts    []TaggedContact `yaml:"contacts" json:"contacts"`
}

// PromptCategory is a named set of journal prompts.
type PromptCategory struct {
	Category string   `yaml:"category" json:"category"`
	Prompts  []string `yaml:"prompts" json:"prompts"`
}

// Meditation is a guided meditation with a fixed length.
type Meditation struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Instruction string `yaml:"instruction" json:"instruction"`
	Minutes     int    `yaml:"minutes" json:"duration"`
}

// Catalog is the top-level YAML structure.
type Catalog struct {
	Support          []SupportCategory `yaml:"support" json:"support"`
	SelfCareTips     []string          `yaml:"self_care_tips" json:"selfCareTips"`
	JournalPrompts   []PromptCategory  `yaml:"journal_prompts" json:"journalPrompts"`
	GratitudePrompts []string          `yaml:"gratitude_prompts" json:"gratitudePrompts"`
	Meditations      []Meditation      `yaml:"meditations" json:"meditations"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(defaultsYAML, &c); err != nil {
		return nil, fmt.Errorf("parse built-in catalog: %w", err)
	}
	return &c, nil
}

// Load reads the override file at path and lays it over the built-in
// catalog. Each top-level section present in the file replaces the
// built-in section. If the file does not exist, Load returns the
// built-in catalog (not an error).
func Load(path string) (*Catalog, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, err
	}

	var override Catalog
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	c.merge(&override)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

func (c *Catalog) merge(o *Catalog) {
	if len(o.Support) > 0 {
		c.Support = o.Support
	}
	if len(o.SelfCareTips) > 0 {
		c.SelfCareTips = o.SelfCareTips
	}
	if len(o.JournalPrompts) > 0 {
		c.JournalPrompts = o.JournalPrompts
	}
	if len(o.GratitudePrompts) > 0 {
		c.GratitudePrompts = o.GratitudePrompts
	}
	if len(o.Meditations) > 0 {
		c.Meditations = o.Meditations
	}
}

// Validate checks identifiers are unique and meditation lengths are sane.
func (c *Catalog) Validate() error {
	var errs []error

	seen := make(map[string]bool, len(c.Support))
	for _, cat := range c.Support {
		if cat.ID == "" {
			errs = append(errs, errors.New("support category without id"))
			continue
		}
		if seen[cat.ID] {
			errs = append(errs, fmt.Errorf("duplicate support category %q", cat.ID))
		}
		seen[cat.ID] = true
	}

	seen = make(map[string]bool, len(c.Meditations))
	for _, m := range c.Meditations {
		switch {
		case m.ID == "":
			errs = append(errs, errors.New("meditation without id"))
		case seen[m.ID]:
			errs = append(errs, fmt.Errorf("duplicate meditation %q", m.ID))
		case m.Minutes <= 0:
			errs = append(errs, fmt.Errorf("meditation %q: minutes must be positive", m.ID))
		}
		seen[m.ID] = true
	}

	return errors.Join(errs...)
}

// Meditation returns a meditation by id. Returns (Meditation{}, false) if not found.
func (c *Catalog) Meditation(id string) (Meditation, bool) {
	for _, m := range c.Meditations {
		if m.ID == id {
			return m, true
		}
	}
	return Meditation{}, false
}

// Category returns a support category by id.
func (c *Catalog) Category(id string) (*SupportCategory, bool) {
	for i := range c.Support {
		if c.Support[i].ID == id {
			return &c.Support[i], true
		}
	}
	return nil, false
}

// Prompts returns the journal prompts of a category, or nil.
func (c *Catalog) Prompts(category string) []string {
	for _, pc := range c.JournalPrompts {
		if pc.Category == category {
			return pc.Prompts
		}
	}
	return nil
}

// Contacts returns every contact of the given kind across all categories,
// in definition order.
func (c *Catalog) Contacts(kind models.ContactKind) []models.Contact {
	var out []models.Contact
	for _, cat := range c.Support {
		for _, tc := range cat.Contacts {
			if tc.Contact != nil && tc.Kind() == kind {
				out = append(out, tc.Contact)
			}
		}
	}
	return out
}
