package notion

import "fmt"

const (
	authErrorMessageTemplateConstant          = "notion authorization failed with status %d: %s"
	transientErrorMessageTemplateConstant     = "notion rate limiting persisted after %d attempts (last status %d)"
	remoteErrorMessageTemplateConstant        = "notion request failed with status %d: %s"
	remoteErrorWithCauseMessageConstant       = "notion request failed: %s"
	invalidInputErrorMessageTemplateConstant  = "%s: %s"
	tokenNotConfiguredMessageConstant         = "access token not configured"
	databaseIdentifierRequiredMessageConstant = "database identifier required"
	pageIdentifierRequiredMessageConstant     = "page identifier required"
	propertyChangesRequiredMessageConstant    = "property changes required"
)

// AuthError reports an authorization failure; it is never retried.
type AuthError struct {
	StatusCode int
	Detail     string
}

// Error describes the authorization failure.
func (authError AuthError) Error() string {
	return fmt.Sprintf(authErrorMessageTemplateConstant, authError.StatusCode, authError.Detail)
}

// TransientServiceError reports rate limiting that outlasted the retry ceiling.
type TransientServiceError struct {
	StatusCode int
	Attempts   int
}

// Error describes the exhausted retry budget.
func (transientError TransientServiceError) Error() string {
	return fmt.Sprintf(transientErrorMessageTemplateConstant, transientError.Attempts, transientError.StatusCode)
}

// RemoteError reports any other remote or transport failure.
type RemoteError struct {
	StatusCode int
	Detail     string
	Cause      error
}

// Error describes the remote failure including response detail when present.
func (remoteError RemoteError) Error() string {
	if remoteError.Cause != nil {
		return fmt.Sprintf(remoteErrorWithCauseMessageConstant, remoteError.Cause)
	}
	return fmt.Sprintf(remoteErrorMessageTemplateConstant, remoteError.StatusCode, remoteError.Detail)
}

// Unwrap exposes the underlying transport error when one exists.
func (remoteError RemoteError) Unwrap() error {
	return remoteError.Cause
}

// InvalidInputError surfaces validation issues for client operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorMessageTemplateConstant, inputError.FieldName, inputError.Message)
}
