// Package bank loads campaign definitions from JSON or YAML bank
// files and imports them into a campaign repository.
package bank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/logging"
)

// Bank manages campaign definitions loaded from files, keyed by
// title. A later file redefines a title loaded earlier.
type Bank struct {
	mu          sync.RWMutex
	definitions map[string]campaign.Campaign
	sources     []string
}

// New creates a new empty Bank.
func New() *Bank {
	return &Bank{
		definitions: make(map[string]campaign.Campaign),
	}
}

// decodeFile parses data as JSON or YAML depending on the file
// extension.
func decodeFile(path string, data []byte) (BankFile, error) {
	var file BankFile
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	return file, err
}

// LoadFile loads campaign definitions from a bank file.
func (b *Bank) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read bank file %s: %w", path, err)
	}

	file, err := decodeFile(path, data)
	if err != nil {
		return fmt.Errorf("parse bank file %s: %w", path, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for i, c := range file.Campaigns {
		if c.Title == "" {
			return fmt.Errorf("campaign at index %d in %s has no title", i, path)
		}
		c.ID = 0
		b.definitions[c.Title] = c.Clone()
	}
	b.sources = append(b.sources, path)
	return nil
}

// LoadDir loads all .json, .yaml and .yml files from a directory.
// It does not recurse.
func (b *Bank) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read bank directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		if err := b.LoadFile(filepath.Join(dir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// Load loads path as a directory or a single file.
func (b *Bank) Load(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat bank path %s: %w", path, err)
	}
	if info.IsDir() {
		return b.LoadDir(path)
	}
	return b.LoadFile(path)
}

// Get retrieves a campaign definition by title.
func (b *Bank) Get(title string) (campaign.Campaign, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.definitions[title]
	return c.Clone(), ok
}

// All returns all loaded definitions sorted by title.
func (b *Bank) All() []campaign.Campaign {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]campaign.Campaign, 0, len(b.definitions))
	for _, c := range b.definitions {
		result = append(result, c.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Title < result[j].Title
	})
	return result
}

// Count returns the number of loaded definitions.
func (b *Bank) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.definitions)
}

// Sources returns the list of loaded file paths.
func (b *Bank) Sources() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	result := make([]string, len(b.sources))
	copy(result, b.sources)
	return result
}

// Import stores every definition in repo. A definition whose title
// matches a stored campaign updates it in place; the others are
// created. Failures are collected and the import goes on with the
// next definition.
func (b *Bank) Import(
	ctx context.Context,
	repo campaign.Repository,
	logger logging.Logger,
) ([]campaign.Campaign, error) {
	if logger == nil {
		logger = logging.NullLogger{}
	}

	var (
		imported []campaign.Campaign
		errs     []error
	)
	for _, c := range b.All() {
		existing, err := repo.FindByName(ctx, c.Title)
		if err != nil {
			errs = append(errs, fmt.Errorf(
				"failed to look up campaign %q: %w", c.Title, err,
			))
			continue
		}
		if len(existing) > 0 {
			c.ID = existing[0].ID
		}

		saved, err := repo.CreateOrUpdate(ctx, c)
		if err != nil {
			logger.Error("campaign import failed",
				logging.StringField("title", c.Title),
				logging.ErrorField(err),
			)
			errs = append(errs, fmt.Errorf(
				"failed to store campaign %q: %w", c.Title, err,
			))
			continue
		}
		logger.Info("campaign imported",
			logging.CampaignField(saved.ID),
			logging.StringField("title", saved.Title),
			logging.BoolField("updated", len(existing) > 0),
		)
		imported = append(imported, saved)
	}
	return imported, errors.Join(errs...)
}
