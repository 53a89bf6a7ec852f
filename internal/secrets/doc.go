// Package secrets resolves the Notion credentials required by audit runs.
//
// Credentials come from the process environment first and fall back to a
// dotenv-style secret file. Values are validated before any network activity
// and are never written to logs or reports.
package secrets
