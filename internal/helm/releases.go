// Package helm applies the environment's Helm releases from a declarative
// releases file, the repo's helmfile analogue.
package helm

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ReleasesFile declares the chart repositories and releases that make up
// the environment (ArgoCD, Traefik, Linkerd, observability, LocalStack,
// NATS in the default setup).
type ReleasesFile struct {
	Repos    []RepoSpec    `yaml:"repos"`
	Releases []ReleaseSpec `yaml:"releases"`
}

// RepoSpec is one chart repository.
type RepoSpec struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// ReleaseSpec is one release to upgrade-or-install.
type ReleaseSpec struct {
	Name      string   `yaml:"name"`
	Chart     string   `yaml:"chart"`
	Namespace string   `yaml:"namespace"`
	Values    []string `yaml:"values"`
	Set       []string `yaml:"set"`
}

// LoadReleases reads and validates a releases file. Relative values paths
// are resolved against the file's directory.
func LoadReleases(path string) (ReleasesFile, error) {
	var rf ReleasesFile

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - releases file path comes from the operator
	if err != nil {
		return rf, fmt.Errorf("failed to read releases file: %w", err)
	}

	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rf, fmt.Errorf("failed to parse releases file: %w", err)
	}

	baseDir := filepath.Dir(cleanPath)
	for i, rel := range rf.Releases {
		for j, v := range rel.Values {
			if !filepath.IsAbs(v) {
				rf.Releases[i].Values[j] = filepath.Join(baseDir, v)
			}
		}
	}

	return rf, rf.Validate()
}

// Validate checks the releases file for unusable entries.
func (rf ReleasesFile) Validate() error {
	seen := make(map[string]bool)
	for i, repo := range rf.Repos {
		if repo.Name == "" {
			return fmt.Errorf("repos[%d]: name must be set", i)
		}
		if _, err := url.ParseRequestURI(repo.URL); err != nil {
			return fmt.Errorf("repos[%d] (%s): invalid url: %w", i, repo.Name, err)
		}
		if seen[repo.Name] {
			return fmt.Errorf("repos[%d]: duplicate repo name %q", i, repo.Name)
		}
		seen[repo.Name] = true
	}

	names := make(map[string]bool)
	for i, rel := range rf.Releases {
		if rel.Name == "" {
			return fmt.Errorf("releases[%d]: name must be set", i)
		}
		if rel.Chart == "" {
			return fmt.Errorf("releases[%d] (%s): chart must be set", i, rel.Name)
		}
		if rel.Namespace == "" {
			return fmt.Errorf("releases[%d] (%s): namespace must be set", i, rel.Name)
		}
		key := rel.Namespace + "/" + rel.Name
		if names[key] {
			return fmt.Errorf("releases[%d]: duplicate release %s", i, key)
		}
		names[key] = true
	}

	return nil
}
