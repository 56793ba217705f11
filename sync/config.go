package sync

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iancoleman/strcase"
	"go.uber.org/config"
)

type Config struct {
	Source      Instance
	Destination Instance
	PageSize    int
	Matching    MatchingConfig
	// Assignments maps a config context assignment field (e.g. "roles")
	// to the destination endpoint used to resolve its ids.
	Assignments map[string]AssignmentLookup
}

// Instance identifies a NetBox instance and the token used to talk to it.
type Instance struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	// AuthScheme is the Authorization header scheme, "Token" or "Bearer".
	AuthScheme string `yaml:"authScheme"`
}

func (i Instance) IsConfigured() bool {
	return i.URL != "" && i.Token != ""
}

// MatchingConfig lists the record fields that make up the natural key
// for each record kind.
type MatchingConfig struct {
	ConfigContexts []string `yaml:"configContexts"`
	LocalContexts  []string `yaml:"localContexts"`
}

type AssignmentLookup struct {
	App      string `yaml:"app"`
	Endpoint string `yaml:"endpoint"`
	Filter   string `yaml:"filter"`
}

// Path returns the API list path for the assignment field.
func (l AssignmentLookup) Path(field string) string {
	endpoint := l.Endpoint
	if endpoint == "" {
		endpoint = strcase.ToKebab(field)
	}
	return fmt.Sprintf("api/%s/%s/", strings.Trim(l.App, "/"), strings.Trim(endpoint, "/"))
}

// AssignmentFields returns the configured assignment fields in a stable order.
func (c Config) AssignmentFields() []string {
	result := make([]string, 0, len(c.Assignments))
	for k := range c.Assignments {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

func (c Config) Validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("pageSize must be positive, have %d", c.PageSize)
	}
	if len(c.Matching.ConfigContexts) == 0 {
		return fmt.Errorf("matching.configContexts must list at least one field")
	}
	if len(c.Matching.LocalContexts) == 0 {
		return fmt.Errorf("matching.localContexts must list at least one field")
	}
	for field, lookup := range c.Assignments {
		if lookup.App == "" || lookup.Filter == "" {
			return fmt.Errorf("assignment %q needs both app and filter", field)
		}
	}
	for _, s := range []string{c.Source.AuthScheme, c.Destination.AuthScheme} {
		if s != "" && s != "Token" && s != "Bearer" {
			return fmt.Errorf("unsupported authScheme %q", s)
		}
	}
	return nil
}

type EnvLookupFunc func(key string) (string, bool)

type YAMLConfigUnmarshaler struct {
	LookupEnv EnvLookupFunc
}

func (u YAMLConfigUnmarshaler) Unmarshal(sources ...ConfigFile) (Config, error) {
	var result Config
	var options []config.YAMLOption
	for _, s := range sources {
		if s.Length > 0 {
			options = append(options, config.Source(s.Reader))
		}
	}
	lookup := u.LookupEnv
	if lookup == nil {
		lookup = EnvLookup
	}
	options = append(options, config.Expand(lookup))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "source"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.Source)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "destination"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.Destination)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "pageSize"
	result.PageSize = DefaultPageSize
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.PageSize)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "matching"
	err = yaml.Get(key).Populate(&result.Matching)
	if err != nil {
		return result, readError(key, err)
	}
	key = "assignments"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.Assignments)
		if err != nil {
			return result, readError(key, err)
		}
	}

	return result, nil
}

// LoadConfig loads the embedded defaults, fills instance credentials from
// the environment and then applies the optional config file on top.
func LoadConfig(filename string) (Config, error) {
	var result Config

	defaults, err := DefaultEmbeddedConfig.MustFindDefaultsConfigFile()
	if err != nil {
		return result, fmt.Errorf("failed to read defaults config file %w", err)
	}
	sources := []ConfigFile{defaults}

	if filename != "" {
		f, err := OpenConfigFile(filename)
		if err != nil {
			return result, fmt.Errorf("failed to read config file %w", err)
		}
		sources = append(sources, f)
	}

	result, err = YAMLConfigUnmarshaler{}.Unmarshal(sources...)
	if err != nil {
		return result, fmt.Errorf("failed to load config %w", err)
	}

	result.Source = mergeInstance(result.Source, InstanceFromEnvironment(SourceEnvPrefix))
	result.Destination = mergeInstance(result.Destination, InstanceFromEnvironment(DestinationEnvPrefix))

	return result, result.Validate()
}

// mergeInstance fills empty fields of i from fallback.
func mergeInstance(i Instance, fallback Instance) Instance {
	if i.URL == "" {
		i.URL = fallback.URL
	}
	if i.Token == "" {
		i.Token = fallback.Token
	}
	if i.AuthScheme == "" {
		i.AuthScheme = fallback.AuthScheme
	}
	return i
}
