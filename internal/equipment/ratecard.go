package equipment

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/angelmondragon/rentquote-backend/internal/pricing"
)

// RateCardFile is the YAML document administrators use to load or update the
// catalog in bulk:
//
//	equipment:
//	  - name: CAT 320
//	    category: Excavators
//	    total_quantity: 3
//	    available_quantity: 2
//	    tiers:
//	      - {from: 1, to: 2, price_per_day: 350}
//	      - {from: 3, price_per_day: 315, discount_percent: 10}
type RateCardFile struct {
	Equipment []RateCardEntry `yaml:"equipment"`
}

// RateCardEntry describes one equipment item. When ID is set the existing
// row is updated; otherwise the item is matched by name within its category.
type RateCardEntry struct {
	ID                *uuid.UUID     `yaml:"id,omitempty"`
	Name              string         `yaml:"name"`
	Category          string         `yaml:"category"`
	Model             *string        `yaml:"model,omitempty"`
	Power             *string        `yaml:"power,omitempty"`
	Description       *string        `yaml:"description,omitempty"`
	TotalQuantity     *int           `yaml:"total_quantity,omitempty"`
	AvailableQuantity *int           `yaml:"available_quantity,omitempty"`
	Tiers             []RateCardTier `yaml:"tiers"`
}

// RateCardTier is a tier row; an omitted "to" makes the tier open-ended.
type RateCardTier struct {
	From            int         `yaml:"from"`
	To              *int        `yaml:"to,omitempty"`
	PricePerDay     yamlDecimal `yaml:"price_per_day"`
	DiscountPercent yamlDecimal `yaml:"discount_percent,omitempty"`
}

type yamlDecimal struct {
	decimal.Decimal
}

func (d *yamlDecimal) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	parsed, err := decimal.NewFromString(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("line %d: invalid amount %q", node.Line, node.Value)
	}
	d.Decimal = parsed
	return nil
}

func (d yamlDecimal) MarshalYAML() (any, error) {
	return d.Decimal.String(), nil
}

// ParseRateCard decodes a rate card document. Unknown keys are rejected.
func ParseRateCard(r io.Reader) (*RateCardFile, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var file RateCardFile
	if err := dec.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("rate card is empty")
		}
		return nil, fmt.Errorf("parse rate card: %w", err)
	}
	return &file, nil
}

// Validate checks every entry and returns all problems at once.
func (f *RateCardFile) Validate() error {
	if len(f.Equipment) == 0 {
		return fmt.Errorf("rate card lists no equipment")
	}
	var errs error
	seen := make(map[string]int, len(f.Equipment))
	for i, entry := range f.Equipment {
		label := entry.label(i)
		if strings.TrimSpace(entry.Name) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s: name is required", label))
		}
		if strings.TrimSpace(entry.Category) == "" {
			errs = multierr.Append(errs, fmt.Errorf("%s: category is required", label))
		}
		key := strings.ToLower(strings.TrimSpace(entry.Category)) + "/" + strings.ToLower(strings.TrimSpace(entry.Name))
		if prev, ok := seen[key]; ok && entry.ID == nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: duplicates entry %d", label, prev+1))
		}
		seen[key] = i
		total, available := entry.TotalQuantity, entry.AvailableQuantity
		if total != nil && *total < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: total_quantity must not be negative", label))
		}
		if available != nil && *available < 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: available_quantity must not be negative", label))
		}
		if total != nil && available != nil && *available > *total {
			errs = multierr.Append(errs, fmt.Errorf("%s: available_quantity exceeds total_quantity", label))
		}
		if len(entry.Tiers) == 0 {
			errs = multierr.Append(errs, fmt.Errorf("%s: at least one tier is required", label))
			continue
		}
		for _, v := range pricing.Violations(pricing.ValidateTiers(entry.pricingTiers())) {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", label, v))
		}
	}
	return errs
}

func (e RateCardEntry) label(i int) string {
	if name := strings.TrimSpace(e.Name); name != "" {
		return fmt.Sprintf("entry %d (%s)", i+1, name)
	}
	return fmt.Sprintf("entry %d", i+1)
}

func (e RateCardEntry) pricingTiers() []pricing.Tier {
	out := make([]pricing.Tier, len(e.Tiers))
	for i, t := range e.Tiers {
		out[i] = pricing.Tier{
			PeriodStart:     t.From,
			PeriodEnd:       t.To,
			PricePerDay:     t.PricePerDay.Decimal,
			DiscountPercent: t.DiscountPercent.Decimal,
		}
	}
	return out
}

func (e RateCardEntry) tierInputs() []TierInput {
	out := make([]TierInput, len(e.Tiers))
	for i, t := range e.Tiers {
		out[i] = TierInput{
			PeriodStart:     t.From,
			PeriodEnd:       t.To,
			PricePerDay:     t.PricePerDay.Decimal,
			DiscountPercent: t.DiscountPercent.Decimal,
		}
	}
	return out
}

// ApplyResult summarizes a rate card import.
type ApplyResult struct {
	CategoriesCreated int `json:"categories_created"`
	EquipmentCreated  int `json:"equipment_created"`
	EquipmentUpdated  int `json:"equipment_updated"`
	TiersWritten      int `json:"tiers_written"`
}

func errorStrings(err error) []string {
	errs := multierr.Errors(err)
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Error())
	}
	return out
}
