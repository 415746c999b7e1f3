// Package catalog loads the region vocabularies used for filter controls
// and chip labels.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/terra-clan/build-directory/internal/models"
)

// regionFile is the on-disk YAML layout of one region
type regionFile struct {
	Region          string          `yaml:"region"`
	Name            string          `yaml:"name"`
	DefaultLocation string          `yaml:"default_location"`
	Locations       []models.Option `yaml:"locations"`
	Professions     []models.Option `yaml:"professions"`
	Specializations []models.Option `yaml:"specializations"`
	SortOptions     []models.Option `yaml:"sort_options"`
	Budgets         []budgetEntry   `yaml:"budgets"`
}

type budgetEntry struct {
	Min   int64  `yaml:"min"`
	Max   int64  `yaml:"max"`
	Label string `yaml:"label"`
}

// Loader holds the loaded region catalogs
type Loader struct {
	mu      sync.RWMutex
	regions map[string]*models.Catalog
	log     *zap.Logger
}

// NewLoader creates an empty loader
func NewLoader(log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{
		regions: make(map[string]*models.Catalog),
		log:     log.Named("catalog"),
	}
}

// LoadFromDir loads every YAML file in dir. Invalid files are logged and
// skipped; an unreadable directory is an error.
func (l *Loader) LoadFromDir(dir string) error {
	l.log.Info("loading catalog from directory", zap.String("dir", dir))

	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("failed to read catalog directory: %w", err)
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			continue
		}
		files = append(files, matches...)
	}

	loaded := 0
	for _, file := range files {
		if err := l.LoadFromFile(file); err != nil {
			l.log.Warn("failed to load catalog file", zap.String("file", file), zap.Error(err))
			continue
		}
		loaded++
	}

	l.log.Info("catalog loaded", zap.Int("regions", loaded), zap.Int("total_files", len(files)))
	return nil
}

// LoadFromFile loads one region file, replacing a region of the same name
func (l *Loader) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	cat, err := Parse(data)
	if err != nil {
		return err
	}

	l.Add(cat)
	l.log.Info("region loaded",
		zap.String("region", cat.Region),
		zap.Int("locations", len(cat.Locations)),
		zap.Int("specializations", len(cat.Specializations)),
	)
	return nil
}

// Parse decodes and validates one region document
func Parse(data []byte) (*models.Catalog, error) {
	var rf regionFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if rf.Region == "" {
		return nil, fmt.Errorf("region is required")
	}
	for _, p := range rf.Professions {
		if !models.Profession(p.Value).Valid() {
			return nil, fmt.Errorf("unknown profession %q", p.Value)
		}
	}
	for _, s := range rf.SortOptions {
		if !models.SortBy(s.Value).Valid() {
			return nil, fmt.Errorf("unknown sort option %q", s.Value)
		}
	}
	for _, opt := range rf.Specializations {
		if strings.Contains(opt.Value, ",") {
			return nil, fmt.Errorf("specialization %q must not contain a comma", opt.Value)
		}
	}

	cat := &models.Catalog{
		Region:          rf.Region,
		Name:            rf.Name,
		DefaultLocation: rf.DefaultLocation,
		Locations:       withLabels(rf.Locations),
		Professions:     withLabels(rf.Professions),
		Specializations: withLabels(rf.Specializations),
		SortOptions:     withLabels(rf.SortOptions),
		Budgets:         make([]models.BudgetOption, 0, len(rf.Budgets)),
	}
	if cat.Name == "" {
		cat.Name = rf.Region
	}

	for _, b := range rf.Budgets {
		if b.Min < 0 || b.Min > b.Max {
			return nil, fmt.Errorf("invalid budget range %d-%d", b.Min, b.Max)
		}
		r := models.BudgetRange{Min: b.Min, Max: b.Max}
		label := b.Label
		if label == "" {
			label = r.String()
		}
		cat.Budgets = append(cat.Budgets, models.BudgetOption{Range: r, Label: label})
	}

	if cat.DefaultLocation != "" {
		if _, ok := cat.Label(models.FieldLocation, cat.DefaultLocation); !ok {
			return nil, fmt.Errorf("default location %q is not a listed location", cat.DefaultLocation)
		}
	}
	return cat, nil
}

// withLabels fills missing labels with the value
func withLabels(opts []models.Option) []models.Option {
	out := make([]models.Option, 0, len(opts))
	for _, opt := range opts {
		if opt.Value == "" {
			continue
		}
		if opt.Label == "" {
			opt.Label = opt.Value
		}
		out = append(out, opt)
	}
	return out
}

// Add registers a catalog programmatically
func (l *Loader) Add(cat *models.Catalog) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.regions[cat.Region] = cat
}

// Get returns the catalog of a region or nil
func (l *Loader) Get(region string) *models.Catalog {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.regions[region]
}

// Regions lists loaded region names in sorted order
func (l *Loader) Regions() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]string, 0, len(l.regions))
	for name := range l.regions {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}
