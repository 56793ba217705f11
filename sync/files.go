package sync

import (
	"bytes"
	"embed"
	"io"
	"os"
	"path"
)

//go:embed config/*.yaml
var embeddedConfigFiles embed.FS

// DefaultEmbeddedConfig holds the configuration defaults compiled into the binary.
var DefaultEmbeddedConfig = EmbeddedConfig{Root: "config", Files: embeddedConfigFiles}

type ConfigFile struct {
	Name   string
	Reader io.Reader
	Length int
}

type EmbeddedConfig struct {
	Root  string
	Files EmbeddedFS
}

type EmbeddedFS interface {
	ReadFile(name string) ([]byte, error)
}

func (ec EmbeddedConfig) MustFindRootConfigFile(filename string) (ConfigFile, error) {
	var result ConfigFile
	name := path.Join(ec.Root, filename)
	b, err := ec.Files.ReadFile(name)
	if err == nil {
		result.Name = name
		result.Reader = bytes.NewReader(b)
		result.Length = len(b)
	}
	return result, err
}

func (ec EmbeddedConfig) MustFindDefaultsConfigFile() (ConfigFile, error) {
	return ec.MustFindRootConfigFile("defaults.yaml")
}

// OpenConfigFile reads a configuration file from disk.
func OpenConfigFile(filename string) (ConfigFile, error) {
	var result ConfigFile
	b, err := os.ReadFile(filename)
	if err == nil {
		result.Name = filename
		result.Reader = bytes.NewReader(b)
		result.Length = len(b)
	}
	return result, err
}
