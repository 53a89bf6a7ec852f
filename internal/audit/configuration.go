package audit

import "strings"

// Default configuration values for audit runs.
const (
	DefaultExportRootConstant = "~/Documents/TechLabAudit/exports"
	DefaultSecretFileConstant = "~/.config/labaudit/secrets.env"
)

// CommandConfiguration captures configuration values shared by the
// daily and weekly audit commands.
type CommandConfiguration struct {
	ExportRoot   string `mapstructure:"export_root"`
	SecretFile   string `mapstructure:"secret_file"`
	RuleSetFile  string `mapstructure:"rule_set_file"`
	ApplyChanges bool   `mapstructure:"apply_changes"`
	Timezone     string `mapstructure:"timezone"`
}

// DefaultCommandConfiguration provides baseline configuration values
// for audit runs.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		ExportRoot:   DefaultExportRootConstant,
		SecretFile:   DefaultSecretFileConstant,
		RuleSetFile:  "",
		ApplyChanges: false,
		Timezone:     "",
	}
}

// DefaultConfigurationValues exposes audit defaults keyed beneath the
// provided configuration prefix.
func DefaultConfigurationValues(configurationKeyPrefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	return map[string]any{
		configurationKeyPrefix + ".export_root":   defaults.ExportRoot,
		configurationKeyPrefix + ".secret_file":   defaults.SecretFile,
		configurationKeyPrefix + ".rule_set_file": defaults.RuleSetFile,
		configurationKeyPrefix + ".apply_changes": defaults.ApplyChanges,
		configurationKeyPrefix + ".timezone":      defaults.Timezone,
	}
}

// sanitize trims configuration values without applying implicit
// defaults.
func (configuration CommandConfiguration) sanitize() CommandConfiguration {
	sanitized := configuration

	sanitized.ExportRoot = strings.TrimSpace(configuration.ExportRoot)
	sanitized.SecretFile = strings.TrimSpace(configuration.SecretFile)
	sanitized.RuleSetFile = strings.TrimSpace(configuration.RuleSetFile)
	sanitized.Timezone = strings.TrimSpace(configuration.Timezone)

	return sanitized
}
