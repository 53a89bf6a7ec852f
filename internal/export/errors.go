package export

import "fmt"

const ioErrorMessageTemplateConstant = "export %s failed for %s: %v"

// IOError reports a failed filesystem operation while writing export
// artifacts.
type IOError struct {
	Operation string
	Path      string
	Cause     error
}

// Error describes the failed operation and path.
func (ioError IOError) Error() string {
	return fmt.Sprintf(ioErrorMessageTemplateConstant, ioError.Operation, ioError.Path, ioError.Cause)
}

// Unwrap exposes the underlying cause.
func (ioError IOError) Unwrap() error {
	return ioError.Cause
}
