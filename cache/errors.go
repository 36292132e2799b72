package cache

import "fmt"

// ConfigError reports a cache geometry that cannot be built.
type ConfigError struct {
	Field  string
	Value  int
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid cache config: %s=%d %s",
		e.Field, e.Value, e.Reason)
}

// IndexError is the panic value raised when Access is given a set index
// outside [0, NumSets). It means the caller decomposed an address wrongly.
type IndexError struct {
	SetIndex uint64
	NumSets  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("set index %d out of range [0, %d)",
		e.SetIndex, e.NumSets)
}
