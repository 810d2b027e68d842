package handler

const (
	errInternalServer = "Internal server error"
	errInvalidRequest = "Invalid request"
	errTokenInvalid   = "Token is invalid or expired"

	errUserNotFound       = "User not found"
	errUserExists         = "User with this email or username already exists"
	errWeakPassword       = "Password must be at least 8 characters, start with an uppercase letter and contain a letter, a digit and a symbol"
	errInvalidCredentials = "Invalid credentials"
	errAccountNotApproved = "Account is awaiting approval"

	errConfirmationRequired = "Password reset has not been confirmed or the confirmation expired"
	errEmailDelivery        = "Could not send email"
)
