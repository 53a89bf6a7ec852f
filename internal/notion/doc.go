// Package notion implements the HTTP client for the hosted Notion database
// backing the lab sign-in sheet.
//
// It exposes Client for paginated database queries and per-page property
// updates, typed errors distinguishing authorization, transient, and remote
// failures, and accessors that read text out of the property value variants
// the service returns.
package notion
