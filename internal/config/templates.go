package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# TradeGuard Configuration
# Discipline limits (max trades, loss limit, streak) are NOT configured here.
# They live in the journal database and are edited with "tradeguard gate set"
# so the gate always evaluates against the latest values.

[journal]
# Path to the SQLite journal database
database_path = ""
# Trading-day timezone: an IANA name like "America/New_York", or "Local"
timezone = "Local"

[ui]
# Enable colored output in terminal notifications
color_enabled = true

[logging]
# Log level: debug, info, warn, error
level = "info"
# Mirror logs to the console
console = false
# Write rotated log files
file = true
# Log file path (empty = default under the config directory)
file_path = ""
# Rotation: max file size in MB, number of backups, max age in days
max_size = 100
max_backups = 7
max_age = 30

[watch]
# Cron schedules (five-field syntax) used by "tradeguard watch"
gate_schedule = "*/5 * * * *"
plan_reminder = "30 8 * * 1-5"
closeout_reminder = "30 17 * * 1-5"

[notifications]
# Enable notifications from watch mode
enabled = false

[notifications.webhook]
enabled = false
url = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
