package captcha

// ServiceError is a custom error type for captcha service errors
type ServiceError string

// Error implements the error interface
func (e ServiceError) Error() string {
	return string(e)
}

// Define errors
const (
	ErrNilConfig      ServiceError = "config cannot be nil"
	ErrNilSessionRepo ServiceError = "session repository cannot be nil"
	ErrNilGenerator   ServiceError = "code generator cannot be nil"
	ErrNilRenderer    ServiceError = "image renderer cannot be nil"
	ErrNilClock       ServiceError = "clock cannot be nil"
	ErrNilUUID        ServiceError = "UUID generator cannot be nil"
	ErrNilInput       ServiceError = "input cannot be nil"
)
