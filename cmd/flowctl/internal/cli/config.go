package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/example/flowide/internal/model"
	"github.com/example/flowide/internal/storage/sqldb"
)

// Output formats.
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds flowctl settings. Environment variables set the defaults,
// flags override them.
type Config struct {
	DB        string
	Driver    string
	Workspace string
	User      string
	Output    string
	Metrics   bool
	Verbose   bool
}

func loadConfig() Config {
	cfg := Config{
		DB:        "flowide.db",
		Driver:    sqldb.DriverSQLite,
		Workspace: model.DefaultWorkspace,
		User:      model.NotAvailable,
		Output:    OutputJSON,
	}

	if db := os.Getenv("FLOWCTL_DB"); db != "" {
		cfg.DB = db
	}
	if driver := os.Getenv("FLOWCTL_DRIVER"); driver != "" {
		cfg.Driver = driver
	}
	if ws := os.Getenv("FLOWCTL_WORKSPACE"); ws != "" {
		cfg.Workspace = ws
	}
	if user := os.Getenv("FLOWCTL_USER"); user != "" {
		cfg.User = user
	} else if user := os.Getenv("USER"); user != "" {
		cfg.User = user
	}
	if out := os.Getenv("FLOWCTL_OUTPUT"); out != "" {
		cfg.Output = out
	}
	if m := os.Getenv("FLOWCTL_METRICS"); m != "" {
		if on, err := strconv.ParseBool(m); err == nil {
			cfg.Metrics = on
		}
	}

	return cfg
}

func (c Config) validate() error {
	switch c.Output {
	case OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Output, OutputJSON, OutputYAML)
	}
	if c.Workspace == "" {
		return fmt.Errorf("workspace must not be empty")
	}
	return nil
}
