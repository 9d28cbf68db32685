// Package sources loads the administrator-maintained source registry file and
// registers its entries into the database at startup.
package sources

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roboticshub/newsfeed/app/database"
)

type registryFile struct {
	Sources []Entry `yaml:"sources"`
}

type Entry struct {
	ID             int64  `yaml:"id"`
	Name           string `yaml:"name"`
	Type           string `yaml:"type"`
	URL            string `yaml:"url"`
	ChannelHandle  string `yaml:"channel_handle"`
	ChannelID      string `yaml:"channel_id"`
	Program        string `yaml:"program"`
	ExtractContent bool   `yaml:"extract_content"`
	Enabled        *bool  `yaml:"enabled"` // defaults to true when omitted
}

var validPrograms = []string{"fll", "ftc", "frc", "general"}

// Load reads and validates the registry file, returning sources ready for
// registration.
func Load(path string) ([]database.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}

	registered := make([]database.Source, 0, len(file.Sources))
	for i, entry := range file.Sources {
		source, err := entry.toSource()
		if err != nil {
			return nil, fmt.Errorf("invalid source at index %d: %w", i, err)
		}
		registered = append(registered, source)
	}

	return registered, nil
}

func (e Entry) toSource() (database.Source, error) {
	if e.ID <= 0 {
		return database.Source{}, fmt.Errorf("id must be a positive integer")
	}
	if e.Name == "" {
		return database.Source{}, fmt.Errorf("name is required")
	}

	switch e.Type {
	case "rss":
		if e.URL == "" {
			return database.Source{}, fmt.Errorf("rss source %q requires a url", e.Name)
		}
	case "youtube":
		if e.ChannelHandle == "" && e.ChannelID == "" {
			return database.Source{}, fmt.Errorf("youtube source %q requires a channel_handle or channel_id", e.Name)
		}
	default:
		return database.Source{}, fmt.Errorf("unknown source type %q", e.Type)
	}

	program := e.Program
	if program == "" {
		program = "general"
	}
	if !slices.Contains(validPrograms, program) {
		return database.Source{}, fmt.Errorf("unknown program %q", e.Program)
	}

	enabled := true
	if e.Enabled != nil {
		enabled = *e.Enabled
	}

	return database.Source{
		ID:             e.ID,
		Name:           e.Name,
		Type:           e.Type,
		URL:            e.URL,
		ChannelHandle:  e.ChannelHandle,
		ChannelID:      e.ChannelID,
		Program:        program,
		ExtractContent: e.ExtractContent,
		Enabled:        enabled,
	}, nil
}
