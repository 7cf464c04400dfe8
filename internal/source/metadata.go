package source

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/Fantasim/truthserum/internal/config"
	"github.com/Fantasim/truthserum/internal/models"
)

// LoadMetadata reads the display metadata document at path. The full
// document is kept in Raw so unknown sections survive serialization.
// Returns ErrMetadataNotFound when path is empty or does not exist.
func LoadMetadata(path string) (*models.Metadata, error) {
	if path == "" {
		return nil, config.ErrMetadataNotFound
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", config.ErrMetadataNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	return ParseMetadata(data)
}

// ParseMetadata decodes a metadata document.
func ParseMetadata(data []byte) (*models.Metadata, error) {
	var meta models.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	meta.Raw = append(json.RawMessage(nil), data...)
	return &meta, nil
}
