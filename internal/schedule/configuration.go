package schedule

import "strings"

// Default cron expressions for scheduled audits.
const (
	DefaultDailyCronConstant  = "0 18 * * *"
	DefaultWeeklyCronConstant = "0 8 * * 1"
)

// CommandConfiguration captures configuration values for the scheduler
// command.
type CommandConfiguration struct {
	DailyCron  string `mapstructure:"daily_cron"`
	WeeklyCron string `mapstructure:"weekly_cron"`
}

// DefaultCommandConfiguration provides baseline scheduler settings.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		DailyCron:  DefaultDailyCronConstant,
		WeeklyCron: DefaultWeeklyCronConstant,
	}
}

// DefaultConfigurationValues exposes scheduler defaults keyed beneath
// the provided configuration prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + ".daily_cron":  defaults.DailyCron,
		configurationKeyPrefix + ".weekly_cron": defaults.WeeklyCron,
	}
}

// sanitize trims configuration values and restores defaults for blank
// expressions.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.DailyCron = strings.TrimSpace(configuration.DailyCron)
	if len(sanitized.DailyCron) == 0 {
		sanitized.DailyCron = DefaultDailyCronConstant
	}
	sanitized.WeeklyCron = strings.TrimSpace(configuration.WeeklyCron)
	if len(sanitized.WeeklyCron) == 0 {
		sanitized.WeeklyCron = DefaultWeeklyCronConstant
	}

	return sanitized
}
