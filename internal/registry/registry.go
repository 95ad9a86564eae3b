// Package registry loads the predefined analysis targets shipped with the
// application and merges in any user-provided targets file.
package registry

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/reviewpulse/reviewpulse/internal/model"
)

// entry is the YAML shape of one predefined target.
type entry struct {
	Company       string   `yaml:"company"`
	Product       string   `yaml:"product"`
	SearchQueries []string `yaml:"search_queries"`
}

type file struct {
	Targets []entry `yaml:"targets"`
}

// Registry holds predefined targets indexed by identifier.
type Registry struct {
	byID map[string]model.Target
}

// builtin mirrors the products the service supported before targets became
// configurable. A user targets file extends or overrides these.
var builtin = []entry{
	{Company: "Anker", Product: "Soundcore Liberty 4"},
	{Company: "Sony", Product: "WH-1000XM5"},
	{Company: "Bose", Product: "QuietComfort Ultra"},
	{Company: "Apple", Product: "AirPods Pro 2"},
	{Company: "Samsung", Product: "Galaxy Buds 3 Pro"},
}

// Load builds the registry from the builtin set plus the optional YAML file
// at path. A missing file is not an error; a malformed one is.
func Load(path string) (*Registry, error) {
	r := &Registry{byID: make(map[string]model.Target)}
	for _, e := range builtin {
		t := model.NewTarget(e.Company, e.Product, e.SearchQueries)
		r.byID[t.Identifier()] = t
	}

	if path == "" {
		return r, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, eris.Wrap(err, "registry: read targets file")
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "registry: parse targets file")
	}
	for _, e := range f.Targets {
		if e.Company == "" || e.Product == "" {
			zap.L().Warn("registry: skipping target with missing company or product",
				zap.String("company", e.Company),
				zap.String("product", e.Product),
			)
			continue
		}
		t := model.NewTarget(e.Company, e.Product, e.SearchQueries)
		r.byID[t.Identifier()] = t
	}

	return r, nil
}

// Get returns the target registered under id.
func (r *Registry) Get(id string) (model.Target, bool) {
	t, ok := r.byID[id]
	return t, ok
}

// All returns every registered target sorted by identifier.
func (r *Registry) All() []model.Target {
	out := make([]model.Target, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Identifier() < out[j].Identifier()
	})
	return out
}
