package sync

import (
	"encoding/json"
	"os"
	"strings"
)

const (
	SourceEnvPrefix      = "NETBOX_SOURCE"
	DestinationEnvPrefix = "NETBOX_DESTINATION"
)

// compositeEnvPrefixes are the env vars that may hold a JSON object
// instead of separate _URL / _TOKEN / _AUTH_SCHEME variables, e.g.
// NETBOX_SOURCE='{"URL":"https://netbox.example.com","TOKEN":"..."}'.
var compositeEnvPrefixes = []string{SourceEnvPrefix, DestinationEnvPrefix}

type JSONCompositeEnvVar struct {
	Parent string
}

func (c JSONCompositeEnvVar) LookupEnv(child string) (string, bool) {
	if c.Parent != "" {
		s := os.Getenv(c.Parent)
		if s != "" {
			m := make(map[string]string)
			err := json.Unmarshal([]byte(s), &m)
			if err == nil {
				v, exists := m[child]
				return v, exists
			}
		}
	}
	return "", false
}

// EnvLookup resolves key from the process environment. When key is not set
// and starts with one of the composite prefixes, the remainder is looked up
// in that prefix's JSON env var, so NETBOX_SOURCE_TOKEN falls back to the
// TOKEN key of NETBOX_SOURCE.
func EnvLookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	for _, prefix := range compositeEnvPrefixes {
		if child, ok := strings.CutPrefix(key, prefix+"_"); ok {
			return JSONCompositeEnvVar{Parent: prefix}.LookupEnv(child)
		}
	}
	return "", false
}

// InstanceFromEnvironment reads <prefix>_URL, <prefix>_TOKEN and
// <prefix>_AUTH_SCHEME.
func InstanceFromEnvironment(prefix string) Instance {
	var result Instance
	result.URL, _ = EnvLookup(prefix + "_URL")
	result.Token, _ = EnvLookup(prefix + "_TOKEN")
	result.AuthScheme, _ = EnvLookup(prefix + "_AUTH_SCHEME")
	return result
}
