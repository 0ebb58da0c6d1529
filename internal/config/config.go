package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dataset types a run can process. The auto-commit blocking-error table is
// keyed by these names.
const (
	DatasetPatients     = "patients"
	DatasetADT          = "adt"
	DatasetAppointments = "appointments"
	DatasetPCOR         = "pcor"
)

var knownDatasetTypes = map[string]struct{}{
	DatasetPatients:     {},
	DatasetADT:          {},
	DatasetAppointments: {},
	DatasetPCOR:         {},
}

// KnownDatasetType reports whether name is one of the dataset types a run
// can process.
func KnownDatasetType(name string) bool {
	_, ok := knownDatasetTypes[name]
	return ok
}

// Config holds all runtime configuration for a feedload run.
type Config struct {
	DSN          string
	FilePath     string
	MappingsPath string
	LogFormat    string // "text" or "json"
	DryRun       bool
	AutoCommit   bool

	EndpointURL string `yaml:"endpoint_url"`
	APIKey      string `yaml:"api_key"`
	DataSetID   int64  `yaml:"data_set_id"`

	PlanID      int64  `yaml:"plan_id"`
	DatasetType string `yaml:"dataset_type"`

	// RestrictToTIN constrains a single-group feed: every imported patient
	// must resolve to this medical group.
	RestrictToTIN string `yaml:"restrict_to_tin"`
}

// yamlConfig is the on-disk YAML structure.
type yamlConfig struct {
	EndpointURL   string `yaml:"endpoint_url"`
	APIKey        string `yaml:"api_key"`
	DataSetID     int64  `yaml:"data_set_id"`
	PlanID        int64  `yaml:"plan_id"`
	DatasetType   string `yaml:"dataset_type"`
	RestrictToTIN string `yaml:"restrict_to_tin"`
	Mappings      string `yaml:"mappings"`
}

// LoadFromFile reads a YAML config file and merges its values into Config.
// The FEEDLOAD_API_KEY environment variable overrides the file's api_key so
// credentials can stay out of checked-in configs.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	c.EndpointURL = yc.EndpointURL
	c.APIKey = yc.APIKey
	c.DataSetID = yc.DataSetID
	c.PlanID = yc.PlanID
	c.DatasetType = yc.DatasetType
	c.RestrictToTIN = yc.RestrictToTIN
	if c.MappingsPath == "" {
		c.MappingsPath = yc.Mappings
	}
	if key := os.Getenv("FEEDLOAD_API_KEY"); key != "" {
		c.APIKey = key
	}
	return c.validateDatasetType()
}

// validateDatasetType checks the dataset type against the known set,
// defaulting to patients.
func (c *Config) validateDatasetType() error {
	if c.DatasetType == "" {
		c.DatasetType = DatasetPatients
		return nil
	}
	if !KnownDatasetType(c.DatasetType) {
		return fmt.Errorf("unknown dataset type %q in config", c.DatasetType)
	}
	return nil
}

// Validate checks required fields and returns an error if the config is invalid.
func (c *Config) Validate() error {
	if c.FilePath == "" {
		return fmt.Errorf("--file is required")
	}
	if _, err := os.Stat(c.FilePath); err != nil {
		return fmt.Errorf("file not accessible: %w", err)
	}
	if c.MappingsPath == "" {
		return fmt.Errorf("--mappings or a mappings entry in the config file is required")
	}
	if c.EndpointURL == "" {
		return fmt.Errorf("endpoint_url is required")
	}
	if c.PlanID == 0 {
		return fmt.Errorf("plan_id is required")
	}
	return nil
}

// ValidateWithDSN checks both the run fields and the DSN.
func (c *Config) ValidateWithDSN() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DSN == "" {
		return fmt.Errorf("--dsn or DATABASE_URL is required")
	}
	return nil
}
