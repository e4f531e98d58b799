package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// SheetEntry names one sheet the operator has enabled for get_sheets.
type SheetEntry struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// SheetsConfig is the statically supplied enumeration of known sheets,
// loaded from a JSON file of shape {"sheets": [{"id": 1, "name": "..."}]}.
type SheetsConfig struct {
	Sheets []SheetEntry `json:"sheets"`
}

// LoadSheetsConfig reads and validates the sheets config file. It is read
// per call so operators can update the file without a restart.
func LoadSheetsConfig(path string) (*SheetsConfig, error) {
	if path == "" {
		return nil, fmt.Errorf("sheets config path is not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sheets config: %w", err)
	}
	var cfg SheetsConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse sheets config: %w", err)
	}
	if cfg.Sheets == nil {
		return nil, fmt.Errorf("sheets config needs a top-level sheets list")
	}
	return &cfg, nil
}
