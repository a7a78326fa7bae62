package config

// Defaults for configuration values.
const (
	DefaultCubesDir  = "cubes"
	DefaultStateFile = ".cubist/order.json"
	DefaultEnv       = "dev"
	DefaultOutput    = "auto"
)

// Config holds the resolved CLI configuration.
type Config struct {
	// ProjectRoot is the directory all relative paths resolve against.
	ProjectRoot string `koanf:"-"`

	// CubesDir is the root directory of cube files.
	CubesDir string `koanf:"cubes_dir"`

	// StatePath is the location of the persisted execution order.
	StatePath string `koanf:"state_path"`

	// EngineCommand is the external schema engine command line.
	EngineCommand string `koanf:"engine_cmd"`

	// Environment is the current environment name (dev, staging, prod).
	Environment string `koanf:"environment"`

	// Verbose enables debug logging.
	Verbose bool `koanf:"verbose"`

	// Output selects the output format (auto, text, json).
	Output string `koanf:"output"`
}
