package helm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/cli/values"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/repo"
	"helm.sh/helm/v3/pkg/storage/driver"

	"github.com/raidhelper/devstack/internal/ui"
)

// Engine drives Helm through its Go SDK rather than the helm binary.
type Engine struct {
	settings *cli.EnvSettings
	timeout  time.Duration
	wait     bool
}

// NewEngine returns an Engine with the ambient Helm environment.
func NewEngine() *Engine {
	return &Engine{
		settings: cli.New(),
		timeout:  5 * time.Minute,
		wait:     true,
	}
}

// SetTimeout overrides the per-release wait timeout.
func (e *Engine) SetTimeout(d time.Duration) {
	e.timeout = d
}

// Apply adds repos and upgrade-or-installs every release in order.
func (e *Engine) Apply(ctx context.Context, rf ReleasesFile) error {
	for _, r := range rf.Repos {
		if err := e.AddRepo(r.Name, r.URL); err != nil {
			return err
		}
	}

	for _, rel := range rf.Releases {
		if err := e.upgradeOrInstall(ctx, rel); err != nil {
			return err
		}
	}
	return nil
}

// Destroy uninstalls releases in reverse declaration order so dependents
// go before their dependencies. Releases already gone are skipped.
func (e *Engine) Destroy(ctx context.Context, rf ReleasesFile) error {
	for i := len(rf.Releases) - 1; i >= 0; i-- {
		rel := rf.Releases[i]

		cfg, err := e.actionConfig(rel.Namespace)
		if err != nil {
			return err
		}

		ui.Stepf("Uninstalling %s (namespace: %s)", rel.Name, rel.Namespace)
		client := action.NewUninstall(cfg)
		if _, err := client.Run(rel.Name); err != nil {
			if errors.Is(err, driver.ErrReleaseNotFound) {
				ui.Skipf("release %s not installed", rel.Name)
				continue
			}
			return fmt.Errorf("failed to uninstall %s: %w", rel.Name, err)
		}
		ui.Donef("Uninstalled %s", rel.Name)
	}
	return nil
}

// ReleaseStatus is a row in `devstack release status`.
type ReleaseStatus struct {
	Name       string
	Namespace  string
	Status     string
	Revision   int
	AppVersion string
}

// Status looks up the deployed state of every declared release.
func (e *Engine) Status(rf ReleasesFile) ([]ReleaseStatus, error) {
	var out []ReleaseStatus
	for _, rel := range rf.Releases {
		cfg, err := e.actionConfig(rel.Namespace)
		if err != nil {
			return nil, err
		}

		client := action.NewStatus(cfg)
		r, err := client.Run(rel.Name)
		if err != nil {
			if errors.Is(err, driver.ErrReleaseNotFound) {
				out = append(out, ReleaseStatus{Name: rel.Name, Namespace: rel.Namespace, Status: "not installed"})
				continue
			}
			return nil, fmt.Errorf("failed to get status of %s: %w", rel.Name, err)
		}
		out = append(out, statusRow(r))
	}
	return out, nil
}

func statusRow(r *release.Release) ReleaseStatus {
	row := ReleaseStatus{
		Name:      r.Name,
		Namespace: r.Namespace,
		Revision:  r.Version,
	}
	if r.Info != nil {
		row.Status = r.Info.Status.String()
	}
	if r.Chart != nil && r.Chart.Metadata != nil {
		row.AppVersion = r.Chart.Metadata.AppVersion
	}
	return row
}

// AddRepo registers a chart repository and downloads its index. An entry
// that already exists is updated in place.
func (e *Engine) AddRepo(name, url string) error {
	repoFile := e.settings.RepositoryConfig
	if err := os.MkdirAll(filepath.Dir(repoFile), 0o750); err != nil {
		return fmt.Errorf("failed to create repository directory: %w", err)
	}

	entry := &repo.Entry{Name: name, URL: url}

	r, err := repo.NewChartRepository(entry, getter.All(e.settings))
	if err != nil {
		return fmt.Errorf("failed to create repository %s: %w", name, err)
	}
	if _, err := r.DownloadIndexFile(); err != nil {
		return fmt.Errorf("failed to download index for repository %s: %w", name, err)
	}

	repoFileData, err := repo.LoadFile(repoFile)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load repository file: %w", err)
	}
	if os.IsNotExist(err) {
		repoFileData = repo.NewFile()
	}

	repoFileData.Update(entry)
	if err := repoFileData.WriteFile(repoFile, 0o644); err != nil {
		return fmt.Errorf("failed to write repository file: %w", err)
	}

	ui.Debugf("repo %s -> %s", name, url)
	return nil
}

// upgradeOrInstall mirrors `helm upgrade --install`: history decides which
// action runs.
func (e *Engine) upgradeOrInstall(ctx context.Context, rel ReleaseSpec) error {
	cfg, err := e.actionConfig(rel.Namespace)
	if err != nil {
		return err
	}

	hist := action.NewHistory(cfg)
	hist.Max = 1
	_, histErr := hist.Run(rel.Name)

	vals, err := e.mergeValues(rel)
	if err != nil {
		return err
	}

	if errors.Is(histErr, driver.ErrReleaseNotFound) {
		return e.install(ctx, cfg, rel, vals)
	}
	if histErr != nil {
		return fmt.Errorf("failed to check history of %s: %w", rel.Name, histErr)
	}
	return e.upgrade(ctx, cfg, rel, vals)
}

func (e *Engine) install(ctx context.Context, cfg *action.Configuration, rel ReleaseSpec, vals map[string]interface{}) error {
	ui.Stepf("Installing %s (chart: %s, namespace: %s)", rel.Name, rel.Chart, rel.Namespace)

	client := action.NewInstall(cfg)
	client.ReleaseName = rel.Name
	client.Namespace = rel.Namespace
	client.CreateNamespace = true
	client.Wait = e.wait
	client.Timeout = e.timeout

	chart, err := e.loadChart(&client.ChartPathOptions, rel.Chart)
	if err != nil {
		return err
	}

	r, err := client.RunWithContext(ctx, chart, vals)
	if err != nil {
		return fmt.Errorf("failed to install %s: %w", rel.Name, err)
	}

	ui.Donef("Installed %s (status: %s)", r.Name, r.Info.Status)
	return nil
}

func (e *Engine) upgrade(ctx context.Context, cfg *action.Configuration, rel ReleaseSpec, vals map[string]interface{}) error {
	ui.Stepf("Upgrading %s (chart: %s, namespace: %s)", rel.Name, rel.Chart, rel.Namespace)

	client := action.NewUpgrade(cfg)
	client.Namespace = rel.Namespace
	client.Wait = e.wait
	client.Timeout = e.timeout

	chart, err := e.loadChart(&client.ChartPathOptions, rel.Chart)
	if err != nil {
		return err
	}

	r, err := client.RunWithContext(ctx, rel.Name, chart, vals)
	if err != nil {
		return fmt.Errorf("failed to upgrade %s: %w", rel.Name, err)
	}

	ui.Donef("Upgraded %s (revision: %d)", r.Name, r.Version)
	return nil
}

func (e *Engine) loadChart(opts *action.ChartPathOptions, ref string) (*chart.Chart, error) {
	chartPath, err := opts.LocateChart(ref, e.settings)
	if err != nil {
		return nil, fmt.Errorf("failed to locate chart %s: %w", ref, err)
	}
	c, err := loader.Load(chartPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart %s: %w", ref, err)
	}
	return c, nil
}

func (e *Engine) mergeValues(rel ReleaseSpec) (map[string]interface{}, error) {
	opts := values.Options{
		ValueFiles: rel.Values,
		Values:     rel.Set,
	}
	vals, err := opts.MergeValues(getter.All(e.settings))
	if err != nil {
		return nil, fmt.Errorf("failed to merge values for %s: %w", rel.Name, err)
	}
	return vals, nil
}

func (e *Engine) actionConfig(namespace string) (*action.Configuration, error) {
	e.settings.SetNamespace(namespace)

	cfg := new(action.Configuration)
	if err := cfg.Init(e.settings.RESTClientGetter(), namespace,
		os.Getenv("HELM_DRIVER"), ui.Debugf); err != nil {
		return nil, fmt.Errorf("failed to initialize Helm: %w", err)
	}
	return cfg, nil
}
