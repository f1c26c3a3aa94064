package helm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeReleases(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "releases.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sampleReleases = `
repos:
  - name: argo
    url: https://argoproj.github.io/argo-helm
  - name: traefik
    url: https://traefik.github.io/charts
releases:
  - name: argocd
    chart: argo/argo-cd
    namespace: argocd
    values:
      - values/argocd.yaml
  - name: traefik
    chart: traefik/traefik
    namespace: traefik
    set:
      - service.type=NodePort
`

func TestLoadReleases(t *testing.T) {
	path := writeReleases(t, sampleReleases)

	rf, err := LoadReleases(path)
	require.NoError(t, err)

	require.Len(t, rf.Repos, 2)
	assert.Equal(t, "argo", rf.Repos[0].Name)

	require.Len(t, rf.Releases, 2)
	assert.Equal(t, "argocd", rf.Releases[0].Name)
	assert.Equal(t, []string{"service.type=NodePort"}, rf.Releases[1].Set)
}

func TestLoadReleasesResolvesRelativeValues(t *testing.T) {
	path := writeReleases(t, sampleReleases)

	rf, err := LoadReleases(path)
	require.NoError(t, err)

	want := filepath.Join(filepath.Dir(path), "values", "argocd.yaml")
	assert.Equal(t, []string{want}, rf.Releases[0].Values)
}

func TestLoadReleasesKeepsAbsoluteValues(t *testing.T) {
	path := writeReleases(t, `
releases:
  - name: x
    chart: repo/x
    namespace: default
    values:
      - /abs/values.yaml
`)
	rf, err := LoadReleases(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"/abs/values.yaml"}, rf.Releases[0].Values)
}

func TestLoadReleasesMissingFile(t *testing.T) {
	_, err := LoadReleases(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		rf     ReleasesFile
		errMsg string
	}{
		{
			name: "empty file is valid",
			rf:   ReleasesFile{},
		},
		{
			name: "repo without name",
			rf: ReleasesFile{
				Repos: []RepoSpec{{URL: "https://example.com"}},
			},
			errMsg: "name must be set",
		},
		{
			name: "repo with bad url",
			rf: ReleasesFile{
				Repos: []RepoSpec{{Name: "x", URL: "not a url"}},
			},
			errMsg: "invalid url",
		},
		{
			name: "duplicate repo",
			rf: ReleasesFile{
				Repos: []RepoSpec{
					{Name: "x", URL: "https://a.example.com"},
					{Name: "x", URL: "https://b.example.com"},
				},
			},
			errMsg: "duplicate repo",
		},
		{
			name: "release without chart",
			rf: ReleasesFile{
				Releases: []ReleaseSpec{{Name: "x", Namespace: "default"}},
			},
			errMsg: "chart must be set",
		},
		{
			name: "release without namespace",
			rf: ReleasesFile{
				Releases: []ReleaseSpec{{Name: "x", Chart: "repo/x"}},
			},
			errMsg: "namespace must be set",
		},
		{
			name: "duplicate release in same namespace",
			rf: ReleasesFile{
				Releases: []ReleaseSpec{
					{Name: "x", Chart: "repo/x", Namespace: "default"},
					{Name: "x", Chart: "repo/y", Namespace: "default"},
				},
			},
			errMsg: "duplicate release",
		},
		{
			name: "same name in different namespaces is fine",
			rf: ReleasesFile{
				Releases: []ReleaseSpec{
					{Name: "x", Chart: "repo/x", Namespace: "a"},
					{Name: "x", Chart: "repo/x", Namespace: "b"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rf.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
