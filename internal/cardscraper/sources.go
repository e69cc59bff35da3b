package cardscraper

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadSources reads a sources.json file.
func LoadSources(path string) ([]Source, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	var sources []Source
	if err := json.NewDecoder(file).Decode(&sources); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return sources, nil
}

// SaveSources writes sources as indented JSON, replacing the file.
func SaveSources(path string, sources []Source) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create sources file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(sources); err != nil {
		return fmt.Errorf("encode sources: %w", err)
	}
	return nil
}
