package creds

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvSource_ConventionalAndNamespacedNames(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("STACKCTL_SECRET_ADMIN_PASSWORD", "pw")
	t.Setenv("STACKCTL_SECRET_AWS_ACCESS_KEY_ID", "shadowed")

	values, err := (&EnvSource{}).Fetch(context.Background())
	require.NoError(t, err)

	// The conventional name wins over the namespaced one.
	assert.Equal(t, "AKIA", values[KeyAWSAccessKeyID])
	assert.Equal(t, "pw", values[KeyAdminPassword])
}

func TestFileSource_ReadsYAMLMap(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("admin_password: filepw\nregistry_token: tok\n"), 0o600))

	values, err := (&FileSource{Path: path}).Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "filepw", values[KeyAdminPassword])
	assert.Equal(t, "tok", values[KeyRegistryToken])
}

func TestFileSource_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	values, err := (&FileSource{Path: filepath.Join(t.TempDir(), "absent.yaml")}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestFileSource_UnconfiguredIsEmpty(t *testing.T) {
	t.Parallel()
	values, err := (&FileSource{}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestFileSource_MalformedYAML(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "secrets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- not\n- a map\n"), 0o600))

	_, err := (&FileSource{Path: path}).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse secrets file")
}

type fakeReader struct {
	prefix string
	values map[string]string
}

func (r *fakeReader) ReadSecrets(_ context.Context, prefix string) (map[string]string, error) {
	r.prefix = prefix
	return r.values, nil
}

func TestRemoteSource_ReadsUnderPrefix(t *testing.T) {
	t.Parallel()
	reader := &fakeReader{values: map[string]string{KeySMTPPassword: "smtp"}}
	src := &RemoteSource{Reader: reader, Prefix: "/stackctl/staging"}

	values, err := src.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/stackctl/staging", reader.prefix)
	assert.Equal(t, "smtp", values[KeySMTPPassword])
}

func TestRemoteSource_NilReaderIsEmpty(t *testing.T) {
	t.Parallel()
	values, err := (&RemoteSource{Prefix: "/x"}).Fetch(context.Background())
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestDefaultSources_Order(t *testing.T) {
	t.Parallel()
	sources := DefaultSources(map[string]string{"k": "v"}, "secrets.yaml", &fakeReader{}, "/p")

	require.Len(t, sources, 4)
	assert.Equal(t, ProvenanceOverride, sources[0].Provenance())
	assert.Equal(t, ProvenanceEnv, sources[1].Provenance())
	assert.Equal(t, ProvenanceFile, sources[2].Provenance())
	assert.Equal(t, ProvenanceRemote, sources[3].Provenance())

	withoutRemote := DefaultSources(nil, "", nil, "")
	assert.Len(t, withoutRemote, 3)
}
