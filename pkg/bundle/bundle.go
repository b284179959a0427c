// pkg/bundle/bundle.go
package bundle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"restaurant-site/internal/common/validation"
)

const StatusSuccess = "success"

var menuSchema = validation.MustCompile(validation.MenuBundleSchema)

// Validate checks raw bundle bytes against the bundle schema.
func Validate(data []byte) (*validation.ValidationResult, error) {
	return menuSchema.ValidateBytes(data)
}

// LoadMenu reads and validates a bundle file.
func LoadMenu(path string) (*MenuBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	result, err := Validate(data)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: %w", path, err)
	}
	if !result.Valid {
		return nil, fmt.Errorf("bundle %s is invalid: %v", path, result.GetErrorMessages())
	}

	var b MenuBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bundle %s: %w", path, err)
	}
	return &b, nil
}

// SaveMenu writes b as indented JSON, replacing path atomically.
func SaveMenu(path string, b *MenuBundle) error {
	if b.Status == "" {
		b.Status = StatusSuccess
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".bundle-*.json")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
