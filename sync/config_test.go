package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearNetBoxEnv(t *testing.T) {
	t.Helper()
	for _, prefix := range compositeEnvPrefixes {
		for _, key := range []string{prefix, prefix + "_URL", prefix + "_TOKEN", prefix + "_AUTH_SCHEME"} {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearNetBoxEnv(t)
	t.Setenv("NETBOX_SOURCE", `{"URL":"https://src.example.com","TOKEN":"abc"}`)
	t.Setenv("NETBOX_DESTINATION_URL", "https://dst.example.com")
	t.Setenv("NETBOX_DESTINATION_TOKEN", "def")
	t.Setenv("NETBOX_DESTINATION_AUTH_SCHEME", "Bearer")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 1000, config.PageSize)
	assert.Equal(t, Instance{URL: "https://src.example.com", Token: "abc"}, config.Source)
	assert.Equal(t, Instance{URL: "https://dst.example.com", Token: "def", AuthScheme: "Bearer"}, config.Destination)
	assert.Equal(t, []string{"name"}, config.Matching.ConfigContexts)
	assert.Equal(t, []string{"name"}, config.Matching.LocalContexts)
	assert.Len(t, config.Assignments, 13)
	assert.Equal(t, "api/dcim/device-roles/", config.Assignments["roles"].Path("roles"))
	assert.Equal(t, "api/dcim/device-types/", config.Assignments["device_types"].Path("device_types"))
	assert.Equal(t, "api/tenancy/tenant-groups/", config.Assignments["tenant_groups"].Path("tenant_groups"))
	assert.Equal(t, "name", config.Assignments["clusters"].Filter)
	assert.Equal(t, "cluster_groups", config.AssignmentFields()[0])
}

func TestLoadConfig_FileOverrides(t *testing.T) {
	clearNetBoxEnv(t)
	t.Setenv("NETBOX_SOURCE_TOKEN", "from-env")
	t.Setenv("TEST_NBMIGRATE_DEST_TOKEN", "xyz")

	filename := filepath.Join(t.TempDir(), "nbmigrate.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(`
pageSize: 50
source:
  url: https://file.example.com
destination:
  url: https://dest.example.com
  token: ${TEST_NBMIGRATE_DEST_TOKEN}
matching:
  configContexts: [name, weight]
assignments:
  roles:
    endpoint: roles
`), 0o644))

	config, err := LoadConfig(filename)
	require.NoError(t, err)

	assert.Equal(t, 50, config.PageSize)
	assert.Equal(t, Instance{URL: "https://file.example.com", Token: "from-env"}, config.Source)
	assert.Equal(t, "xyz", config.Destination.Token)
	assert.Equal(t, []string{"name", "weight"}, config.Matching.ConfigContexts)
	assert.Equal(t, []string{"name"}, config.Matching.LocalContexts)
	assert.Equal(t, "api/dcim/roles/", config.Assignments["roles"].Path("roles"))
	assert.Len(t, config.Assignments, 13)
}

func TestLoadConfig_Invalid(t *testing.T) {
	clearNetBoxEnv(t)
	dir := t.TempDir()
	cases := map[string]string{
		"page-size.yaml":   "pageSize: 0\n",
		"auth-scheme.yaml": "source:\n  authScheme: Basic\n",
		"matching.yaml":    "matching:\n  localContexts: []\n",
		"assignment.yaml":  "assignments:\n  racks:\n    app: dcim\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			filename := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
			_, err := LoadConfig(filename)
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvLookup(t *testing.T) {
	clearNetBoxEnv(t)
	t.Setenv("NETBOX_SOURCE", `{"URL":"https://src.example.com"}`)
	t.Setenv("NETBOX_DESTINATION", `not json`)

	v, ok := EnvLookup("NETBOX_SOURCE_URL")
	assert.True(t, ok)
	assert.Equal(t, "https://src.example.com", v)

	_, ok = EnvLookup("NETBOX_SOURCE_TOKEN")
	assert.False(t, ok)
	_, ok = EnvLookup("NETBOX_DESTINATION_URL")
	assert.False(t, ok)

	t.Setenv("NETBOX_SOURCE_URL", "https://override.example.com")
	v, _ = EnvLookup("NETBOX_SOURCE_URL")
	assert.Equal(t, "https://override.example.com", v)
}
