package bank

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digital.vasic.campaigns/pkg/campaign"
	"digital.vasic.campaigns/pkg/store/memory"
)

func writeJSONBank(t *testing.T, dir, name string, file BankFile) string {
	t.Helper()
	data, err := json.Marshal(file)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

const yamlBank = `
version: "1.0"
name: regression
campaigns:
  - title: nightly
    environment: staging
    parallel_run: true
    retry_auto: true
    scenarios:
      - scenario_id: login
      - scenario_id: checkout
        dataset_id: carts
    tags: [smoke]
`

func TestBank_LoadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBank), 0644))

	b := New()
	require.NoError(t, b.LoadFile(path))
	assert.Equal(t, 1, b.Count())

	c, ok := b.Get("nightly")
	require.True(t, ok)
	assert.Equal(t, "staging", c.Environment)
	assert.True(t, c.ParallelRun)
	assert.True(t, c.RetryAuto)
	require.Len(t, c.Scenarios, 2)
	assert.Equal(t, "carts", c.Scenarios[1].DatasetID)
	assert.Equal(t, []string{path}, b.Sources())
}

func TestBank_LoadFile_JSONIgnoresIDs(t *testing.T) {
	path := writeJSONBank(t, t.TempDir(), "bank.json", BankFile{
		Version:   "1.0",
		Campaigns: []campaign.Campaign{{ID: 42, Title: "smoke"}},
	})

	b := New()
	require.NoError(t, b.LoadFile(path))
	c, ok := b.Get("smoke")
	require.True(t, ok)
	assert.Zero(t, c.ID)
}

func TestBank_LoadFile_Errors(t *testing.T) {
	dir := t.TempDir()

	b := New()
	assert.Error(t, b.LoadFile(filepath.Join(dir, "missing.json")))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))
	err := b.LoadFile(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse bank file")

	untitled := writeJSONBank(t, dir, "untitled.json", BankFile{
		Version:   "1.0",
		Campaigns: []campaign.Campaign{{Environment: "x"}},
	})
	err = b.LoadFile(untitled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no title")
}

func TestBank_LoadDir(t *testing.T) {
	dir := t.TempDir()
	writeJSONBank(t, dir, "a.json", BankFile{
		Version:   "1.0",
		Campaigns: []campaign.Campaign{{Title: "b"}, {Title: "a"}},
	})
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "c.yml"), []byte(yamlBank), 0644,
	))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644,
	))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	b := New()
	require.NoError(t, b.Load(dir))
	assert.Equal(t, 3, b.Count())

	all := b.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Title)
	assert.Equal(t, "nightly", all[2].Title)

	assert.Error(t, New().Load(filepath.Join(dir, "absent")))
}

func TestBank_Import_CreatesAndUpdatesByTitle(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewCampaignStore()
	existing, err := repo.CreateOrUpdate(ctx, campaign.Campaign{
		Title: "nightly", Environment: "old",
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "bank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBank+`
  - title: weekly
    environment: prod
    scenarios:
      - scenario_id: report
`), 0644))

	b := New()
	require.NoError(t, b.LoadFile(path))

	imported, err := b.Import(ctx, repo, nil)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.Equal(t, existing.ID, imported[0].ID)
	assert.Equal(t, "staging", imported[0].Environment)
	assert.NotEqual(t, existing.ID, imported[1].ID)

	all := repo.All()
	assert.Len(t, all, 2)
}

type failingRepo struct {
	campaign.Repository
}

func (failingRepo) FindByName(context.Context, string) ([]campaign.Campaign, error) {
	return nil, nil
}

func (failingRepo) CreateOrUpdate(
	_ context.Context,
	c campaign.Campaign,
) (campaign.Campaign, error) {
	if c.Title == "bad" {
		return campaign.Campaign{}, errors.New("disk full")
	}
	c.ID = 1
	return c, nil
}

func TestBank_Import_CollectsErrors(t *testing.T) {
	path := writeJSONBank(t, t.TempDir(), "bank.json", BankFile{
		Version:   "1.0",
		Campaigns: []campaign.Campaign{{Title: "bad"}, {Title: "good"}},
	})
	b := New()
	require.NoError(t, b.LoadFile(path))

	imported, err := b.Import(context.Background(), failingRepo{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `failed to store campaign "bad"`)
	require.Len(t, imported, 1)
	assert.Equal(t, "good", imported[0].Title)
}
