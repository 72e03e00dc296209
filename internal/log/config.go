package log

type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `conf:"level" yaml:"level" json:"level"`

	// Format is either "json" or "console". Defaults to console.
	Format string `conf:"format" yaml:"format" json:"format"`

	// Output is "stdout", "stderr" or a file path. File output rotates
	// through lumberjack using the File settings below.
	Output string `conf:"output" yaml:"output" json:"output"`

	File FileConfig `conf:"file" yaml:"file" json:"file"`
}

type FileConfig struct {
	// MaxSize is the maximum size in megabytes before rotation.
	MaxSize    int  `conf:"max_size" yaml:"max_size" json:"max_size"`
	MaxBackups int  `conf:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAge     int  `conf:"max_age" yaml:"max_age" json:"max_age"`
	Compress   bool `conf:"compress" yaml:"compress" json:"compress"`
}

func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: "stdout",
		File: FileConfig{
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}
