package checkout

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource loads the plan catalog from a YAML file. The file holds a
// list of plans; the map key is derived from each plan's id.
//
//	plans:
//	  - id: consultoria-mensal
//	    name: Consultoria Mensal
//	    monthly_price: "R$ 1.490"
//	    price_ids:
//	      default: pri_abc123
type FileSource struct {
	path string
}

// NewFileSource creates a source reading from path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(_ context.Context) (map[string]Plan, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read plans file: %w", err)
	}

	var doc struct {
		Plans []Plan `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse plans file: %w", err)
	}

	plans := make(map[string]Plan, len(doc.Plans))
	for _, plan := range doc.Plans {
		if _, dup := plans[plan.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate plan id %s", ErrInvalidPlanConfiguration, plan.ID)
		}
		plans[plan.ID] = plan
	}
	return plans, nil
}
