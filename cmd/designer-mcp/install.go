package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// installConfig holds settings for the install/uninstall commands.
type installConfig struct {
	dryRun bool
}

const mcpServerKey = "designer-mcp"

// editor is an MCP host configured through a JSON file with an
// "mcpServers" map.
type editor struct {
	name string
	path func() string
}

func editors() []editor {
	return []editor{
		{"Cursor", cursorConfigPath},
		{"Windsurf", windsurfConfigPath},
	}
}

func parseInstallArgs(args []string) installConfig {
	cfg := installConfig{}
	for _, a := range args {
		if a == "--dry-run" {
			cfg.dryRun = true
		}
	}
	return cfg
}

func runInstall(args []string) int {
	cfg := parseInstallArgs(args)

	binaryPath, err := detectBinaryPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	fmt.Printf("\ndesigner-mcp %s: install\n", version)
	fmt.Printf("Binary: %s\n\n", binaryPath)

	for _, e := range editors() {
		installEditorMCP(binaryPath, e.path(), e.name, cfg)
	}

	fmt.Println("\nDone. Restart your editor to activate.")
	return 0
}

func runUninstall(args []string) int {
	cfg := parseInstallArgs(args)

	fmt.Printf("\ndesigner-mcp %s: uninstall\n\n", version)

	for _, e := range editors() {
		removeEditorMCP(e.path(), e.name, cfg)
	}

	fmt.Println("\nDone. Binary and journal were NOT removed.")
	return 0
}

// detectBinaryPath resolves the current binary's real path.
func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("detect binary: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolve symlink: %w", err)
	}
	return resolved, nil
}

// cursorConfigPath returns the Cursor MCP config path.
func cursorConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cursor", "mcp.json")
}

// windsurfConfigPath returns the Windsurf MCP config path.
func windsurfConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".codeium", "windsurf", "mcp_config.json")
}

// installEditorMCP upserts our MCP server entry in an editor's JSON config file.
func installEditorMCP(binaryPath, configPath, editorName string, cfg installConfig) {
	if configPath == "" {
		return
	}

	fmt.Printf("[%s] MCP config: %s\n", editorName, configPath)

	if cfg.dryRun {
		fmt.Printf("  [dry-run] Would upsert %s in %s\n", mcpServerKey, configPath)
		return
	}

	root := make(map[string]any)
	if data, err := os.ReadFile(configPath); err == nil {
		if jsonErr := json.Unmarshal(data, &root); jsonErr != nil {
			fmt.Printf("  ⚠ Invalid JSON in %s, overwriting\n", configPath)
			root = make(map[string]any)
		}
	}

	servers, ok := root["mcpServers"].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	servers[mcpServerKey] = map[string]any{
		"command": binaryPath,
	}
	root["mcpServers"] = servers

	if err := os.MkdirAll(filepath.Dir(configPath), 0o750); err != nil {
		fmt.Printf("  ⚠ mkdir %s: %v\n", filepath.Dir(configPath), err)
		return
	}
	if err := writeJSON(configPath, root); err != nil {
		fmt.Printf("  ⚠ %v\n", err)
		return
	}
	fmt.Printf("  ✓ MCP server registered in %s\n", configPath)
}

// removeEditorMCP removes our MCP server entry from an editor's JSON config file.
func removeEditorMCP(configPath, editorName string, cfg installConfig) {
	if configPath == "" {
		return
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return // nothing registered
	}

	var root map[string]any
	if err := json.Unmarshal(data, &root); err != nil {
		return
	}
	servers, ok := root["mcpServers"].(map[string]any)
	if !ok {
		return
	}
	if _, exists := servers[mcpServerKey]; !exists {
		return
	}

	fmt.Printf("[%s] MCP config: %s\n", editorName, configPath)

	if cfg.dryRun {
		fmt.Printf("  [dry-run] Would remove %s from %s\n", mcpServerKey, configPath)
		return
	}

	delete(servers, mcpServerKey)
	root["mcpServers"] = servers
	if err := writeJSON(configPath, root); err != nil {
		fmt.Printf("  ⚠ %v\n", err)
		return
	}
	fmt.Printf("  ✓ Removed %s from %s\n", mcpServerKey, configPath)
}

func writeJSON(path string, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	if err := os.WriteFile(path, append(out, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
