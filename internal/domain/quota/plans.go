package quota

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var plansYAML []byte

type Plan struct {
	Tier          string `yaml:"tier" json:"tier"`
	Name          string `yaml:"name" json:"name"`
	AnalysesLimit int    `yaml:"analyses_limit" json:"analyses_limit"`
	UpgradeTo     string `yaml:"upgrade_to" json:"upgrade_to,omitempty"`
}

type Catalog struct {
	Default string `yaml:"default"`
	Plans   []Plan `yaml:"plans"`

	byTier map[string]Plan
}

// DefaultCatalog returns the plan catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(plansYAML)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse plan catalog: %w", err)
	}

	c.byTier = make(map[string]Plan, len(c.Plans))
	for i := range c.Plans {
		p := &c.Plans[i]
		p.Tier = strings.ToLower(strings.TrimSpace(p.Tier))
		if p.Tier == "" {
			return nil, fmt.Errorf("parse plan catalog: plan without tier")
		}
		if p.AnalysesLimit < Unlimited {
			return nil, fmt.Errorf("parse plan catalog: plan %q has invalid limit %d", p.Tier, p.AnalysesLimit)
		}
		if _, dup := c.byTier[p.Tier]; dup {
			return nil, fmt.Errorf("parse plan catalog: duplicate tier %q", p.Tier)
		}
		c.byTier[p.Tier] = *p
	}
	c.Default = strings.ToLower(strings.TrimSpace(c.Default))
	if _, ok := c.byTier[c.Default]; !ok {
		return nil, fmt.Errorf("parse plan catalog: default tier %q is not defined", c.Default)
	}
	return &c, nil
}

func (c *Catalog) Get(tier string) (Plan, error) {
	p, ok := c.byTier[strings.ToLower(strings.TrimSpace(tier))]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrUnknownPlan, tier)
	}
	return p, nil
}

func (c *Catalog) DefaultPlan() Plan {
	return c.byTier[c.Default]
}
