package config

import (
	"time"
)

// Config is the root configuration structure
type Config struct {
	Version    int              `yaml:"version"`
	Kernel     KernelConfig     `yaml:"kernel"`
	Conversion ConversionConfig `yaml:"conversion"`
	History    HistoryConfig    `yaml:"history"`
	Watch      WatchConfig      `yaml:"watch"`
}

// Transport selects how the kernel is reached
type Transport string

const (
	// TransportLocal runs the kernel bridge as a subprocess
	TransportLocal Transport = "local"
	// TransportSSH runs the kernel bridge on a remote host
	TransportSSH Transport = "ssh"
	// TransportSim uses the in-memory kernel; nothing is meshed
	TransportSim Transport = "sim"
)

// KernelConfig locates the geometry kernel
type KernelConfig struct {
	Transport Transport `yaml:"transport" env:"CADTOH5M_KERNEL_TRANSPORT"`
	CubitPath string    `yaml:"cubit_path" env:"CADTOH5M_CUBIT_PATH"`
	Python    string    `yaml:"python,omitempty" env:"CADTOH5M_PYTHON"`
	SSH       SSHConfig `yaml:"ssh,omitempty"`
}

// SSHConfig holds the remote kernel host. Secrets are only read from the
// environment, never from the file.
type SSHConfig struct {
	Host        string    `yaml:"host,omitempty" env:"CADTOH5M_SSH_HOST"`
	Port        int       `yaml:"port,omitempty" env:"CADTOH5M_SSH_PORT"`
	User        string    `yaml:"user,omitempty" env:"CADTOH5M_SSH_USER"`
	KeyPath     *string   `yaml:"key_path,omitempty" env:"CADTOH5M_SSH_KEY_PATH"`
	KnownHosts  string    `yaml:"known_hosts,omitempty" env:"CADTOH5M_SSH_KNOWN_HOSTS"`
	CubitPath   string    `yaml:"cubit_path,omitempty" env:"CADTOH5M_SSH_CUBIT_PATH"`
	Python      string    `yaml:"python,omitempty" env:"CADTOH5M_SSH_PYTHON"`
	DialTimeout *Duration `yaml:"dial_timeout,omitempty" env:"CADTOH5M_SSH_DIAL_TIMEOUT"`

	Passphrase string `yaml:"-" env:"CADTOH5M_SSH_PASSPHRASE"`
	Password   string `yaml:"-" env:"CADTOH5M_SSH_PASSWORD"`
}

// ConversionConfig holds default conversion options. Job files and flags
// override them per run.
type ConversionConfig struct {
	H5MFilename                   string  `yaml:"h5m_filename,omitempty" env:"CADTOH5M_H5M_FILENAME"`
	MergeTolerance                float64 `yaml:"merge_tolerance,omitempty" env:"CADTOH5M_MERGE_TOLERANCE"`
	FacetingTolerance             float64 `yaml:"faceting_tolerance,omitempty" env:"CADTOH5M_FACETING_TOLERANCE"`
	MakeWatertight                *bool   `yaml:"make_watertight,omitempty" env:"CADTOH5M_MAKE_WATERTIGHT"`
	Imprint                       *bool   `yaml:"imprint,omitempty" env:"CADTOH5M_IMPRINT"`
	SurfaceReflectivityName       string  `yaml:"surface_reflectivity_name,omitempty" env:"CADTOH5M_SURFACE_REFLECTIVITY_NAME"`
	ImplicitComplementMaterialTag string  `yaml:"implicit_complement_material_tag,omitempty" env:"CADTOH5M_IMPLICIT_COMPLEMENT_MATERIAL_TAG"`
	Graveyard                     float64 `yaml:"graveyard,omitempty" env:"CADTOH5M_GRAVEYARD"`
	Verbose                       *bool   `yaml:"verbose,omitempty" env:"CADTOH5M_VERBOSE"`
}

// HistoryConfig holds the run history database settings
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty" env:"CADTOH5M_HISTORY_ENABLED"`
	Path    string `yaml:"path" env:"CADTOH5M_HISTORY_PATH"`
}

// WatchConfig tunes watch mode
type WatchConfig struct {
	Debounce *Duration `yaml:"debounce,omitempty" env:"CADTOH5M_WATCH_DEBOUNCE"`
}

// Duration wraps time.Duration for YAML unmarshaling
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler for environment values
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the underlying time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
