package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"luxrent/internal/domain/refund"
)

type policyFile struct {
	Version           string                  `yaml:"version"`
	Fees              feesFile                `yaml:"fees"`
	FullRefundReasons []string                `yaml:"fullRefundReasons"`
	Schedules         map[string]scheduleFile `yaml:"schedules"`
}

type feesFile struct {
	ProcessingRate float64 `yaml:"processingRate"`
	ConciergeFlat  float64 `yaml:"conciergeFlat"`
	InsuranceRate  float64 `yaml:"insuranceRate"`
}

type scheduleFile struct {
	Tiers []tierFile `yaml:"tiers"`
	Floor tierFile   `yaml:"floor"`
}

type tierFile struct {
	Label    string  `yaml:"label"`
	MinHours float64 `yaml:"minHours,omitempty"`
	Fraction float64 `yaml:"fraction"`
}

// LoadPolicy returns the policy in path, or the built-in default when path is empty.
func LoadPolicy(path string) (refund.Policy, error) {
	if path == "" {
		return refund.DefaultPolicy(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return refund.Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML policy table and validates it.
func ParsePolicy(data []byte) (refund.Policy, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return refund.Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	p := refund.Policy{
		Version: file.Version,
		Fees: refund.FeeSchedule{
			ProcessingRate: decimal.NewFromFloat(file.Fees.ProcessingRate),
			ConciergeFlat:  decimal.NewFromFloat(file.Fees.ConciergeFlat),
			InsuranceRate:  decimal.NewFromFloat(file.Fees.InsuranceRate),
		},
		FullRefundReasons: append([]string(nil), file.FullRefundReasons...),
		Schedules:         make(map[refund.ItemType]refund.Schedule, len(file.Schedules)),
	}
	for item, s := range file.Schedules {
		schedule := refund.Schedule{Floor: s.Floor.tier()}
		for _, t := range s.Tiers {
			schedule.Tiers = append(schedule.Tiers, t.tier())
		}
		p.Schedules[refund.ItemType(item)] = schedule
	}
	if err := p.Validate(); err != nil {
		return refund.Policy{}, err
	}
	return p, nil
}

// MarshalPolicy renders p in the format ParsePolicy reads.
func MarshalPolicy(p refund.Policy) ([]byte, error) {
	file := policyFile{
		Version: p.Version,
		Fees: feesFile{
			ProcessingRate: p.Fees.ProcessingRate.InexactFloat64(),
			ConciergeFlat:  p.Fees.ConciergeFlat.InexactFloat64(),
			InsuranceRate:  p.Fees.InsuranceRate.InexactFloat64(),
		},
		FullRefundReasons: p.FullRefundReasons,
		Schedules:         make(map[string]scheduleFile, len(p.Schedules)),
	}
	for item, s := range p.Schedules {
		sf := scheduleFile{Floor: fileTier(s.Floor)}
		for _, t := range s.Tiers {
			sf.Tiers = append(sf.Tiers, fileTier(t))
		}
		file.Schedules[string(item)] = sf
	}
	return yaml.Marshal(file)
}

func (t tierFile) tier() refund.Tier {
	return refund.Tier{Label: t.Label, MinHours: t.MinHours, Fraction: decimal.NewFromFloat(t.Fraction)}
}

func fileTier(t refund.Tier) tierFile {
	return tierFile{Label: t.Label, MinHours: t.MinHours, Fraction: t.Fraction.InexactFloat64()}
}
