package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdomain = "github.com/01fortes/goioc/internal/testdomain"

func TestLoad(t *testing.T) {
	section, err := Load("testdata/ioc.yml")
	require.NoError(t, err)

	assert.Equal(t, []string{testdomain, "github.com/01fortes/goioc/pkg/container/fixtures"}, section.AssemblyNames())
	assert.Equal(t, []string{"audit"}, section.Configurations)
	assert.False(t, section.IncludeReleaseOrDefault())
}

func TestLoad_MissingFile(t *testing.T) {
	section, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Empty(t, section.AssemblyNames())
	assert.True(t, section.IncludeReleaseOrDefault())
}

func TestLoad_NoSection(t *testing.T) {
	section, err := Load("testdata/other.yml")
	require.NoError(t, err)
	assert.Empty(t, section.Assemblies)
}

func TestLoad_Invalid(t *testing.T) {
	_, err := Load("testdata/invalid.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), SectionName)

	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("iocAssemblyConfiguration: [\n"), 0o600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvAssemblies, "example.com/a, example.com/b,,example.com/a")
	t.Setenv(EnvIncludeRelease, "true")

	section, err := Load("testdata/ioc.yml")
	require.NoError(t, err)

	assert.Equal(t, []string{"example.com/a", "example.com/b"}, section.AssemblyNames())
	assert.True(t, section.IncludeReleaseOrDefault())
	assert.Equal(t, []string{"audit"}, section.Configurations)
}

func TestLoad_InvalidIncludeRelease(t *testing.T) {
	t.Setenv(EnvIncludeRelease, "sometimes")

	_, err := Load("testdata/ioc.yml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvIncludeRelease)
}

func TestLoad_EnvFile(t *testing.T) {
	_, preset := os.LookupEnv(EnvConfigurations)
	require.False(t, preset, "%s must not be set when running this test", EnvConfigurations)
	t.Cleanup(func() { _ = os.Unsetenv(EnvConfigurations) })

	section, err := Load("testdata/ioc.yml", "testdata/overrides.env", "testdata/missing.env")
	require.NoError(t, err)
	assert.Equal(t, []string{"audit", "reporting"}, section.Configurations)
}

func TestLoad_MalformedEnvFile(t *testing.T) {
	_, err := Load("testdata/ioc.yml", "testdata/malformed.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed.env")
}

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		assemblies []string
	}{
		{name: "empty document", doc: ""},
		{name: "other keys", doc: "server:\n  port: 8080\n"},
		{
			name:       "section",
			doc:        SectionName + ":\n  assemblies:\n    - assembly: example.com/a\n",
			assemblies: []string{"example.com/a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			section, err := Parse(strings.NewReader(tt.doc))
			require.NoError(t, err)
			if tt.assemblies == nil {
				assert.Empty(t, section.AssemblyNames())
				return
			}
			assert.Equal(t, tt.assemblies, section.AssemblyNames())
		})
	}
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ioc.yml")
	write := func(assembly string) {
		doc := SectionName + ":\n  assemblies:\n    - assembly: " + assembly + "\n"
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	}
	write("example.com/first")

	w, err := NewWatcher(path, nil, filepath.Join(dir, "none.env"))
	require.NoError(t, err)
	w.SetDebounce(50 * time.Millisecond)
	assert.Equal(t, []string{"example.com/first"}, w.Current().AssemblyNames())

	changes := make(chan *AssemblyRegistration, 4)
	w.OnChange(func(*AssemblyRegistration) { panic("listener failure") })
	w.OnChange(func(section *AssemblyRegistration) { changes <- section })

	require.NoError(t, w.Start())
	defer w.Stop()

	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yml"), []byte("a: b\n"), 0o600))
	write("example.com/second")

	select {
	case section := <-changes:
		assert.Equal(t, []string{"example.com/second"}, section.AssemblyNames())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the file changed")
	}
	assert.Equal(t, []string{"example.com/second"}, w.Current().AssemblyNames())
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(filepath.Join(t.TempDir(), "ioc.yml"), nil)
	require.NoError(t, err)
	w.Stop()
	w.Stop()
}
