// Package docker builds temporary Docker auth configuration for the
// scan tools to use against private registries.
package docker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RegistryCredentials stores credentials for a Docker registry.
type RegistryCredentials struct {
	RegistryURL string `json:"-"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// ParseCredentials parses "registry:username:password" strings.
// Malformed entries are skipped.
func ParseCredentials(creds []string) []RegistryCredentials {
	var result []RegistryCredentials
	for _, c := range creds {
		parts := strings.SplitN(c, ":", 3)
		if len(parts) == 3 && parts[0] != "" {
			result = append(result, RegistryCredentials{
				RegistryURL: parts[0],
				Username:    parts[1],
				Password:    parts[2],
			})
		}
	}
	return result
}

// CredentialsMap keys the credentials by registry URL.
func CredentialsMap(creds []RegistryCredentials) map[string]RegistryCredentials {
	m := make(map[string]RegistryCredentials, len(creds))
	for _, c := range creds {
		m[c.RegistryURL] = c
	}
	return m
}

// GenerateConfigText renders a Docker config.json document for the
// given credentials.
func GenerateConfigText(credentialsMap map[string]RegistryCredentials) (string, error) {
	config := map[string]any{
		"auths": credentialsMap,
	}
	data, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("failed to marshal docker config: %w", err)
	}
	return string(data), nil
}

// WriteConfigToTempDir writes config.json into a fresh temporary
// directory and returns the file path. The directory is suitable as a
// DOCKER_CONFIG value; the caller removes it when the scan finishes.
func WriteConfigToTempDir(configText string) (string, error) {
	dir, err := os.MkdirTemp("", "docker-config-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(configText), 0o600); err != nil {
		return "", fmt.Errorf("failed to write docker config: %w", err)
	}
	return path, nil
}
