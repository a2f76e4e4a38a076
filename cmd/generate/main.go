package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/rxtech-lab/argo-histdata/pkg/histdata"
)

func main() {
	// Create a config instance
	config := histdata.EmptySyncConfig()

	// Set the output paths
	schemaName := "histdata-sync-config.json"
	schemaPath := filepath.Join("./config", schemaName)
	sampleConfigPath := filepath.Join("./config", "histdata-sync-config.yaml")

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		log.Fatalf("Invalid output paths: %v", err)
	}

	if err := validateSchemaName(schemaName); err != nil {
		log.Fatalf("Invalid schema name: %v", err)
	}

	if err := generateSchemaFile(config, schemaPath); err != nil {
		log.Fatalf("Failed to generate schema: %v", err)
	}

	if err := generateSampleConfig(config, sampleConfigPath, schemaName); err != nil {
		log.Fatalf("Failed to generate sample config: %v", err)
	}

	log.Printf("Schema successfully generated at %s", schemaPath)
}

// generateSchemaFile writes the JSON schema for the sync config.
func generateSchemaFile(config histdata.SyncConfig, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes a starter YAML referencing the schema, unless a
// sample already exists.
func generateSampleConfig(config histdata.SyncConfig, samplePath, schemaName string) error {
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	// Prepend the editor hint so the schema applies while editing
	yamlBytes = append([]byte(getSchemaReference(schemaName)), yamlBytes...)

	if err := os.MkdirAll(filepath.Dir(samplePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(samplePath, yamlBytes, 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	log.Printf("Sample config successfully generated at %s", samplePath)

	return nil
}

// validatePaths rejects empty output locations before any file is touched.
func validatePaths(schemaPath, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

// validateSchemaName enforces the .json extension the schema reference expects.
func validateSchemaName(schemaName string) error {
	if schemaName == "" {
		return fmt.Errorf("schema name cannot be empty")
	}

	if !strings.HasSuffix(schemaName, ".json") {
		return fmt.Errorf("schema name must have .json extension, got %q", schemaName)
	}

	return nil
}

// getSchemaReference returns the yaml-language-server line prepended to
// generated YAML files.
func getSchemaReference(schemaName string) string {
	return "# yaml-language-server: $schema=" + schemaName + "\n"
}
