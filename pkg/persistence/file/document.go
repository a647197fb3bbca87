package file

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/ryxhub/flowengine/pkg/models"
)

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))

	return ext == ".yaml" || ext == ".yml"
}

// ReadDocument loads a single workflow document from path. Files ending in .yaml or .yml are
// decoded as YAML, anything else as JSON.
func ReadDocument(path string) (*models.Workflow, error) {
	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow document %s: %w", path, err)
	}

	var workflow models.Workflow

	if isYAML(path) {
		err = yaml.Unmarshal(body, &workflow)
	} else {
		err = json.Unmarshal(body, &workflow)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode workflow document %s: %w", path, err)
	}

	return &workflow, nil
}

// WriteDocument stores a workflow document at path in the format its extension selects.
func WriteDocument(path string, workflow *models.Workflow) error {
	var (
		data []byte
		err  error
	)

	if isYAML(path) {
		data, err = yaml.Marshal(workflow)
	} else {
		data, err = json.MarshalIndent(workflow, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("failed to encode workflow %s: %w", workflow.ID, err)
	}

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write workflow document %s: %w", path, err)
	}

	return nil
}
