package config

import "time"

// StewardConfig is the top-level configuration structure for steward.
type StewardConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Controller ControllerConfig `yaml:"controller"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
}

// ServerConfig defines the configuration for the HTTP status/webhook server.
type ServerConfig struct {
	Port    int    `yaml:"port,omitempty"`    // Port for the status endpoint (default: 8090)
	Host    string `yaml:"host,omitempty"`    // Host to bind to (default: localhost)
	Enabled *bool  `yaml:"enabled,omitempty"` // Whether the server is enabled (default: true)
}

// ControllerConfig defines the behavior of the reconciliation controller.
type ControllerConfig struct {
	// SyncInterval is the base interval between reconciliation passes.
	SyncInterval time.Duration `yaml:"syncInterval,omitempty"`

	// Workers is the number of applications reconciled concurrently.
	Workers int `yaml:"workers,omitempty"`

	// OperationTimeout bounds a single apply/delete against the cluster.
	OperationTimeout time.Duration `yaml:"operationTimeout,omitempty"`

	// MaxRetries is the per-resource retry limit for transient apply failures.
	MaxRetries int `yaml:"maxRetries,omitempty"`

	// InitialBackoff is the first retry delay; doubled per attempt up to MaxBackoff.
	InitialBackoff time.Duration `yaml:"initialBackoff,omitempty"`
	MaxBackoff     time.Duration `yaml:"maxBackoff,omitempty"`
}

// KubernetesConfig selects how the cluster connection is established.
type KubernetesConfig struct {
	// Kubeconfig is the path to a kubeconfig file. Empty means in-cluster
	// config first, then the default kubeconfig location.
	Kubeconfig string `yaml:"kubeconfig,omitempty"`

	// Context is the kubeconfig context to use (default: current context).
	Context string `yaml:"context,omitempty"`

	QPS   float32 `yaml:"qps,omitempty"`
	Burst int     `yaml:"burst,omitempty"`
}

// SourceType identifies where an application's manifests come from.
type SourceType string

const (
	// SourceTypeDirectory reads manifests from a local directory tree.
	SourceTypeDirectory SourceType = "directory"

	// SourceTypeGit fetches manifests from a git repository at a revision.
	SourceTypeGit SourceType = "git"
)

// Application defines one reconciled application: where its desired state
// comes from, where it is applied, and which sync policies govern it.
type Application struct {
	// Name identifies the application. Must be unique.
	Name string `yaml:"name"`

	Source      SourceSpec      `yaml:"source"`
	Destination DestinationSpec `yaml:"destination"`
	SyncPolicy  SyncPolicySpec  `yaml:"syncPolicy,omitempty"`
}

// SourceSpec describes the source of truth for an application's manifests.
type SourceSpec struct {
	// Type selects the source implementation. Defaults to "directory" when
	// RepoURL is empty and "git" otherwise.
	Type SourceType `yaml:"type,omitempty"`

	// Path is the directory containing the manifests. For git sources this
	// is relative to the repository root.
	Path string `yaml:"path"`

	// RepoURL is the git repository URL (git sources only).
	RepoURL string `yaml:"repoURL,omitempty"`

	// Revision is the git revision to track: branch, tag or commit SHA
	// (git sources only, default: HEAD of the default branch).
	Revision string `yaml:"revision,omitempty"`

	// Kustomize renders the path with kustomize instead of reading plain
	// YAML files.
	Kustomize bool `yaml:"kustomize,omitempty"`

	// Parameters are substituted into manifests that use template syntax.
	// Plain manifests without template actions pass through untouched.
	Parameters map[string]string `yaml:"parameters,omitempty"`
}

// DestinationSpec describes the cluster-side target of an application.
type DestinationSpec struct {
	// Namespace is the default namespace for namespaced resources that do
	// not set one themselves.
	Namespace string `yaml:"namespace,omitempty"`
}

// SyncPolicySpec governs how an application is synced.
type SyncPolicySpec struct {
	// Automated enables automatic sync on source changes and on schedule.
	// When nil, passes only report drift; they never write.
	Automated *AutomatedPolicy `yaml:"automated,omitempty"`

	// SyncInterval overrides the controller-wide interval for this
	// application.
	SyncInterval time.Duration `yaml:"syncInterval,omitempty"`
}

// AutomatedPolicy holds the prune and self-heal switches.
type AutomatedPolicy struct {
	// Prune deletes live resources that are no longer part of the desired
	// set. Disabled resources are reported as orphaned instead.
	Prune bool `yaml:"prune,omitempty"`

	// SelfHeal reverts manual edits to live resources even without a new
	// source revision.
	SelfHeal bool `yaml:"selfHeal,omitempty"`
}

// IsAutomated reports whether automatic sync is enabled.
func (s SyncPolicySpec) IsAutomated() bool {
	return s.Automated != nil
}

// PruneEnabled reports whether pruning is enabled for this application.
func (s SyncPolicySpec) PruneEnabled() bool {
	return s.Automated != nil && s.Automated.Prune
}

// SelfHealEnabled reports whether self-heal is enabled for this application.
func (s SyncPolicySpec) SelfHealEnabled() bool {
	return s.Automated != nil && s.Automated.SelfHeal
}
