package bank

import "digital.vasic.campaigns/pkg/campaign"

// BankFile is the on-disk structure of a campaign bank, written as
// JSON or YAML. Campaigns are matched to stored ones by title, so
// their ids are ignored.
type BankFile struct {
	Version   string              `json:"version" yaml:"version"`
	Name      string              `json:"name" yaml:"name"`
	Campaigns []campaign.Campaign `json:"campaigns" yaml:"campaigns"`
	Metadata  map[string]any      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}
