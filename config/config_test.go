// Copyright 2025 Cubedeck
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
version: "1.0"
registry:
  backend: memory
store:
  backend: local
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "/var/lib/cubedeck/olap-servers", cfg.Store.Root)
	assert.Equal(t, 120, cfg.Redis.LimitPerMinute)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_OLAP_DSN", "postgres://db:5432/olap")

	path := writeConfigFile(t, `
version: "1.0"
registry:
  backend: postgres
  dsn: ${TEST_OLAP_DSN}
server:
  port: "${TEST_OLAP_PORT:-9090}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://db:5432/olap", cfg.Registry.DSN)
	assert.Equal(t, "9090", cfg.Server.Port, "unset var should fall back to the default")
}

func TestLoadRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing version",
			content: "registry:\n  backend: memory\n",
		},
		{
			name:    "unknown registry backend",
			content: "version: \"1.0\"\nregistry:\n  backend: oracle\n",
		},
		{
			name:    "postgres without dsn",
			content: "version: \"1.0\"\nregistry:\n  backend: postgres\n",
		},
		{
			name:    "unknown store backend",
			content: "version: \"1.0\"\nstore:\n  backend: ftp\n",
		},
		{
			name:    "s3 without bucket",
			content: "version: \"1.0\"\nstore:\n  backend: s3\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("OLAP_REGISTRY_BACKEND", "postgres")
	t.Setenv("OLAP_REGISTRY_DSN", "postgres://x")
	t.Setenv("OLAP_STORE_BACKEND", "s3")
	t.Setenv("OLAP_STORE_BUCKET", "cubes")

	cfg := FromEnv()

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Registry.Backend)
	assert.Equal(t, "s3", cfg.Store.Backend)
	assert.Equal(t, "cubes", cfg.Store.Bucket)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}
