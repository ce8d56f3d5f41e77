package config

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
)

const (
	// InitialMirrorConfigVersion is the first version of the mirror config.
	// Config files that do not specify a version will default to this
	// version.
	InitialMirrorConfigVersion = "v1alpha1"

	// SupportedMirrorConfigVersion is the supported version of the mirror
	// config of the current dirmirror binary.
	SupportedMirrorConfigVersion = "v1alpha1"

	// DefaultInterval is how long to wait between passes if no interval is
	// configured.
	DefaultInterval = 30 * time.Second

	// DefaultLogFile is the audit log path used if none is configured.
	DefaultLogFile = "dirmirror.log"
)

// Mirror contains the configuration for mirroring one directory tree onto
// another.
type Mirror struct {
	Version string `json:"version,omitempty"`

	// Source is the directory that's mirrored. Required.
	Source string `json:"source"`

	// Replica is the directory that's made to match Source. Required.
	Replica string `json:"replica"`

	// Interval is the time between the end of one pass and the start of the
	// next.
	Interval Duration `json:"interval,omitempty"`

	LogFile   string `json:"logFile,omitempty"`
	LogFormat string `json:"logFormat,omitempty"`

	// Except contains gitignore-style patterns for paths that shouldn't be
	// mirrored.
	Except []string `json:"except,omitempty"`

	// Only populated and consumed by dirmirror. Never set by user.
	path string
}

func (c Mirror) getVersion() string {
	return c.Version
}

// GetPath returns the filepath that the config was parsed from, or an empty
// string if it wasn't parsed from a file.
func (c Mirror) GetPath() string {
	return c.path
}

// Duration is a time.Duration that's written in config files either as a
// string such as "1m30s", or as a number of seconds.
type Duration time.Duration

// UnmarshalJSON implements json.Unmarshaler. ghodss/yaml converts YAML to
// JSON before decoding.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var seconds float64
	if err := json.Unmarshal(b, &seconds); err == nil {
		*d = Duration(seconds * float64(time.Second))
		return nil
	}

	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return errors.New("interval must be a duration such as \"30s\", or a number of seconds")
	}

	parsed, err := time.ParseDuration(str)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Default returns the configuration used for fields that are neither set in a
// config file nor on the command line.
func Default() Mirror {
	return Mirror{
		Version:  SupportedMirrorConfigVersion,
		Interval: Duration(DefaultInterval),
		LogFile:  DefaultLogFile,
	}
}

// ParseMirror parses the mirror config at `path`. Paths within the config are
// expanded, and relative paths are evaluated relative to the config file.
func ParseMirror(path string) (Mirror, error) {
	config := Mirror{path: path, Version: InitialMirrorConfigVersion}
	if err := parseConfig(path, &config, SupportedMirrorConfigVersion); err != nil {
		var dneErr errors.FileNotFound
		if errors.As(err, &dneErr) {
			return Mirror{}, errors.NewFriendlyError(
				"The config file doesn't exist at %q.", dneErr.Path)
		}
		return Mirror{}, errors.WithContext(err, "parse")
	}

	if err := config.Resolve(filepath.Dir(path)); err != nil {
		return Mirror{}, errors.WithContext(err, "resolve paths")
	}
	return config, nil
}

// WriteMirror writes the given config to `path`.
func WriteMirror(path string, cfg Mirror) error {
	cfg.Version = SupportedMirrorConfigVersion
	return writeConfig(path, cfg)
}

// Merge returns a copy of `c` with every field that's set in `override`
// replaced.
func (c Mirror) Merge(override Mirror) Mirror {
	if override.Source != "" {
		c.Source = override.Source
	}
	if override.Replica != "" {
		c.Replica = override.Replica
	}
	if override.Interval != 0 {
		c.Interval = override.Interval
	}
	if override.LogFile != "" {
		c.LogFile = override.LogFile
	}
	if override.LogFormat != "" {
		c.LogFormat = override.LogFormat
	}
	if len(override.Except) != 0 {
		c.Except = append(append([]string{}, c.Except...), override.Except...)
	}
	if override.path != "" {
		c.path = override.path
	}
	return c
}

// Resolve expands `~` in the configured paths, and makes relative paths
// absolute by joining them to `relativeTo`.
func (c *Mirror) Resolve(relativeTo string) error {
	for _, path := range []*string{&c.Source, &c.Replica, &c.LogFile} {
		if *path == "" {
			continue
		}

		expanded, err := homedirExpand(*path)
		if err != nil {
			return errors.WithContext(err, "expand homedir")
		}

		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(relativeTo, expanded)
		}
		*path = filepath.Clean(expanded)
	}
	return nil
}

// Validate checks that the config can be used to start mirroring. The replica
// doesn't need to exist yet, see EnsureReplica.
func (c Mirror) Validate() error {
	if c.Source == "" {
		return errors.NewFriendlyError("The source folder is required.\n" +
			"Pass it as the first argument, or set `source` in the config file.")
	}

	if c.Replica == "" {
		return errors.NewFriendlyError("The replica folder is required.\n" +
			"Pass it as the second argument, or set `replica` in the config file.")
	}

	if c.Interval <= 0 {
		return errors.NewFriendlyError("The interval must be positive, got %s.",
			time.Duration(c.Interval))
	}

	isDir, err := afero.IsDir(fs, c.Source)
	if err != nil || !isDir {
		if err != nil {
			log.WithError(err).WithField("path", c.Source).Debug("Failed to stat source")
		}
		return errors.NewFriendlyError("Source folder %q does not exist!", c.Source)
	}

	if isWithin(c.Source, c.Replica) || isWithin(c.Replica, c.Source) {
		return errors.NewFriendlyError(
			"The source (%q) and replica (%q) must not contain each other.",
			c.Source, c.Replica)
	}

	// Passes would delete a log file that's inside the replica.
	if c.LogFile != "" {
		logFile, err := filepath.Abs(c.LogFile)
		if err != nil {
			return errors.WithContext(err, "get absolute log path")
		}

		replica, err := filepath.Abs(c.Replica)
		if err != nil {
			return errors.WithContext(err, "get absolute replica path")
		}

		if isWithin(replica, logFile) {
			return errors.NewFriendlyError(
				"The log file (%q) must not be inside the replica (%q).",
				c.LogFile, c.Replica)
		}
	}
	return nil
}

// EnsureReplica creates the replica root if it doesn't exist. It returns
// whether the directory was created.
func EnsureReplica(path string) (bool, error) {
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return false, errors.WithContext(err, "stat replica")
	}

	if exists {
		isDir, err := afero.IsDir(fs, path)
		if err != nil {
			return false, errors.WithContext(err, "stat replica")
		}
		if !isDir {
			return false, errors.NewFriendlyError(
				"Replica %q exists but is not a folder.", path)
		}
		return false, nil
	}

	if err := fs.MkdirAll(path, 0755); err != nil {
		return false, errors.WithContext(err, "create replica")
	}
	return true, nil
}

// isWithin returns whether `path` is `dir` or one of its descendants.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
