package content

// DefaultMaxLength is the longest accepted input, in characters.
const DefaultMaxLength = 1000

// Config controls input validation.
type Config struct {
	MaxLength int `json:"max_length" yaml:"max_length"`
}

// DefaultConfig returns the reference limits.
func DefaultConfig() Config {
	return Config{MaxLength: DefaultMaxLength}
}

func (c *Config) Merge(source *Config) {
	if source.MaxLength > 0 {
		c.MaxLength = source.MaxLength
	}
}
