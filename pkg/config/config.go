package config

// Config is the root configuration of the kvlog binary.
type Config struct {
	Logger  LoggerConfig  `yaml:"logger"`
	Storage StorageConfig `yaml:"storage"`
}

// StorageConfig covers on-disk layout and compaction sizing.
type StorageConfig struct {
	// DataDir is the storage directory. Empty means the working
	// directory of the process.
	DataDir string `yaml:"data_dir"`
	// CompactionThresholdBytes triggers compaction once the active
	// segment grows past it. Zero or negative selects the built-in
	// default.
	CompactionThresholdBytes int64 `yaml:"compaction_threshold_bytes"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns a baseline development config.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level: "INFO",
			JSON:  false,
		},
		Storage: StorageConfig{
			DataDir:                  "",
			CompactionThresholdBytes: 1 << 20,
		},
	}
}
