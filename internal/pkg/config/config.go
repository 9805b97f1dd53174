package config

import (
	"io"
	"time"
)

// Config defines a set of methods for retrieving configuration values of
// various types. Implementations handle retrieval and type conversion of
// configuration data, returning zero values when a key is absent or cannot
// be converted.
type Config interface {
	io.Closer

	// GetString retrieves the configuration value associated with the given key as a string.
	GetString(key string) string

	// GetBool retrieves the configuration value associated with the given key as a bool.
	GetBool(key string) bool

	// GetInt retrieves the configuration value associated with the given key as an int.
	GetInt(key string) int

	// GetInt32 retrieves the configuration value associated with the given key as an int32.
	GetInt32(key string) int32

	// GetUint retrieves the configuration value associated with the given key as a uint.
	GetUint(key string) uint

	// GetUint16 retrieves the configuration value associated with the given key as a uint16.
	GetUint16(key string) uint16

	// GetFloat64 retrieves the configuration value associated with the given key as a float64.
	GetFloat64(key string) float64

	// GetSecond retrieves the configuration value associated with the given key as seconds.
	GetSecond(key string) time.Duration

	// GetMinute retrieves the configuration value associated with the given key as minutes.
	GetMinute(key string) time.Duration

	// GetArray retrieves the configuration value associated with the given key as a slice
	// of strings. Configuration value is stored with format <element1>,<element2>,...
	GetArray(key string) []string

	// GetBinary retrieves the configuration value associated with the given key as a byte
	// slice. Configuration value is stored as base64 encoded.
	GetBinary(key string) []byte
}
