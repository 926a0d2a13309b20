// Package config reads the assembly registration section that tells the
// container which registration packages to invoke.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// SectionName is the top-level key of the section in the config file
	SectionName = "iocAssemblyConfiguration"
	// DefaultPath is read when no path is given
	DefaultPath = "ioc.yml"

	EnvAssemblies     = "IOC_ASSEMBLIES"
	EnvConfigurations = "IOC_CONFIGURATIONS"
	EnvIncludeRelease = "IOC_INCLUDE_RELEASE"
)

var validate = validator.New()

// AssemblyElement names one registration package
type AssemblyElement struct {
	Assembly string `yaml:"assembly" validate:"required"`
}

// AssemblyRegistration is the iocAssemblyConfiguration section
type AssemblyRegistration struct {
	Assemblies     []AssemblyElement `yaml:"assemblies" validate:"dive"`
	Configurations []string          `yaml:"configurations" validate:"dive,required"`
	IncludeRelease *bool             `yaml:"includeRelease"`
}

type document struct {
	Section *AssemblyRegistration `yaml:"iocAssemblyConfiguration"`
}

// Load reads the section from the YAML file at path, then applies the
// environment overrides. The .env files are loaded first and default to ".env";
// missing ones are skipped, malformed ones are an error. A missing config file yields an empty section.
func Load(path string, envFiles ...string) (*AssemblyRegistration, error) {
	if path == "" {
		path = DefaultPath
	}
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	section := &AssemblyRegistration{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// empty section
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", path, err)
	default:
		if section, err = Parse(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := section.applyEnv(); err != nil {
		return nil, err
	}
	if err := section.Validate(); err != nil {
		return nil, err
	}
	return section, nil
}

// Parse decodes a YAML document holding the section. An empty document or one
// without the section yields an empty section.
func Parse(r io.Reader) (*AssemblyRegistration, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if doc.Section == nil {
		return &AssemblyRegistration{}, nil
	}
	return doc.Section, nil
}

// Validate checks every assembly element names a package
func (a *AssemblyRegistration) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("invalid %s section: %w", SectionName, err)
	}
	return nil
}

// AssemblyNames lists the configured package paths without duplicates
func (a *AssemblyRegistration) AssemblyNames() []string {
	seen := make(map[string]bool, len(a.Assemblies))
	names := make([]string, 0, len(a.Assemblies))
	for _, element := range a.Assemblies {
		name := strings.TrimSpace(element.Assembly)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

// IncludeReleaseOrDefault reports whether release registrations run, true unless configured off
func (a *AssemblyRegistration) IncludeReleaseOrDefault() bool {
	return a.IncludeRelease == nil || *a.IncludeRelease
}

func (a *AssemblyRegistration) applyEnv() error {
	if value := os.Getenv(EnvAssemblies); value != "" {
		a.Assemblies = nil
		for _, name := range splitList(value) {
			a.Assemblies = append(a.Assemblies, AssemblyElement{Assembly: name})
		}
	}
	if value := os.Getenv(EnvConfigurations); value != "" {
		a.Configurations = splitList(value)
	}
	if value := os.Getenv(EnvIncludeRelease); value != "" {
		include, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvIncludeRelease, err)
		}
		a.IncludeRelease = &include
	}
	return nil
}

func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
