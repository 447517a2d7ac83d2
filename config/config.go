/*
Package config loads process configuration.

PURPOSE:
  Central place for everything the server reads from its environment:
  HTTP port, database path, payroll scheduler interval. Values come from
  (highest precedence first) environment variables, an optional .env
  file, and defaults. Command-line flags in cmd/server may still
  override individual values.

ENVIRONMENT:
  SALARY_PORT                HTTP port (default 8080)
  SALARY_DB_PATH             SQLite path (default salaries.db; ":memory:" works)
  SALARY_SCHEDULER_ENABLED   Run the payroll scheduler (default true)
  SALARY_SCHEDULER_INTERVAL  Scheduler check interval (default 1h)

  A .env file next to the binary is loaded if present.
*/
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SALARY"

// Config holds the resolved process configuration.
type Config struct {
	Port              int
	DBPath            string
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
}

// Load resolves configuration from defaults, .env and environment.
func Load() Config {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "salaries.db")
	v.SetDefault("scheduler_enabled", true)
	v.SetDefault("scheduler_interval", time.Hour)

	// load .env if it exists (ignore if it does not)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Fatalf("config: loading .env: %v", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	return Config{
		Port:              v.GetInt("port"),
		DBPath:            v.GetString("db_path"),
		SchedulerEnabled:  v.GetBool("scheduler_enabled"),
		SchedulerInterval: v.GetDuration("scheduler_interval"),
	}
}
