package secrets

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Environment variable names used to resolve Notion credentials.
const (
	EnvNotionToken    = "NOTION_TOKEN"
	EnvNotionDatabase = "NOTION_DB"
)

const (
	secretFileTypeConstant              = "env"
	secretFileReadErrorTemplateConstant = "unable to read secret file %s: %w"
	missingKeysMessageTemplateConstant  = "missing required credentials: %s"
	missingKeySeparatorConstant         = ", "
	redactedCredentialsConstant         = "notion credentials (token and database redacted)"
)

// Credentials carries the validated access token and database identifier.
type Credentials struct {
	Token              string
	DatabaseIdentifier string
}

// String redacts both values so accidental logging never exposes secrets.
func (Credentials) String() string {
	return redactedCredentialsConstant
}

// ConfigError reports credential keys that were absent or empty.
type ConfigError struct {
	MissingKeys []string
}

// Error lists the missing credential keys.
func (configError ConfigError) Error() string {
	return fmt.Sprintf(missingKeysMessageTemplateConstant, strings.Join(configError.MissingKeys, missingKeySeparatorConstant))
}

// Store resolves credentials from the environment and an optional secret file.
type Store struct {
	secretFilePath string
}

// NewStore constructs a Store reading the optional dotenv-style file at secretFilePath.
func NewStore(secretFilePath string) *Store {
	return &Store{secretFilePath: strings.TrimSpace(secretFilePath)}
}

// Load resolves and validates credentials without performing network access.
func (store *Store) Load() (Credentials, error) {
	fileValues, fileError := store.readSecretFile()
	if fileError != nil {
		return Credentials{}, fileError
	}

	credentials := Credentials{
		Token:              resolveValue(EnvNotionToken, fileValues),
		DatabaseIdentifier: resolveValue(EnvNotionDatabase, fileValues),
	}

	missingKeys := make([]string, 0, 2)
	if len(credentials.Token) == 0 {
		missingKeys = append(missingKeys, EnvNotionToken)
	}
	if len(credentials.DatabaseIdentifier) == 0 {
		missingKeys = append(missingKeys, EnvNotionDatabase)
	}
	if len(missingKeys) > 0 {
		return Credentials{}, ConfigError{MissingKeys: missingKeys}
	}

	return credentials, nil
}

func (store *Store) readSecretFile() (map[string]string, error) {
	if len(store.secretFilePath) == 0 {
		return nil, nil
	}

	if _, statError := os.Stat(store.secretFilePath); statError != nil {
		if os.IsNotExist(statError) {
			return nil, nil
		}
		return nil, fmt.Errorf(secretFileReadErrorTemplateConstant, store.secretFilePath, statError)
	}

	viperInstance := viper.New()
	viperInstance.SetConfigFile(store.secretFilePath)
	viperInstance.SetConfigType(secretFileTypeConstant)
	if readError := viperInstance.ReadInConfig(); readError != nil {
		return nil, fmt.Errorf(secretFileReadErrorTemplateConstant, store.secretFilePath, readError)
	}

	fileValues := make(map[string]string)
	for _, settingKey := range viperInstance.AllKeys() {
		fileValues[strings.ToUpper(settingKey)] = strings.TrimSpace(viperInstance.GetString(settingKey))
	}
	return fileValues, nil
}

func resolveValue(key string, fileValues map[string]string) string {
	if environmentValue, exists := os.LookupEnv(key); exists {
		trimmedValue := strings.TrimSpace(environmentValue)
		if len(trimmedValue) > 0 {
			return trimmedValue
		}
	}
	if fileValues == nil {
		return ""
	}
	return fileValues[key]
}
