package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExampleConfig is written by `todolist init`.
const ExampleConfig = `# todolist configuration

# Base URL of the task API.
api_url = "http://localhost:5000"

# Log in before talking to the API. Leave empty for anonymous servers.
# username = ""
# password = ""

timeout = "10s"

[log]
level = "info"
# The terminal UI owns stdout, so interactive sessions log to a file.
file = ".todolist/todolist.log"

[server]
addr = ":5000"
db_path = ".todolist/todolist.db"
# snapshot_path = ".todolist/snapshot.jsonl"
allow_anonymous = true
allowed_origins = ["*"]
session_ttl = "168h"
`

// WriteExample writes ExampleConfig to path unless a file already exists.
func WriteExample(path string) error {
	if fileExists(path) {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(ExampleConfig), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
