package flows

// User-facing messages. Hosts render these verbatim.
const (
	MsgNameTooShort        = "Name must be at least 2 characters"
	MsgEmailRequired       = "Valid email is required"
	MsgPasswordTooShort    = "Password must be at least 8 characters"
	MsgPasswordMismatch    = "Passwords do not match"
	MsgPasswordComposition = "Password must contain uppercase, lowercase, and numbers"
	MsgInvalidOTP          = "Please enter a valid 6-digit code"
	MsgInvalidResetEmail   = "Please enter a valid email address"
	MsgCredentialsRequired = "Email and password are required"
	MsgEmailFirst          = "Please enter your email address first"

	MsgAuthServerUnreachable = "Unable to connect to authentication server. Please check your network or contact support."
	MsgServerUnreachable     = "Unable to connect to the server. Please check your network connection or try again later."
	MsgServerConnection      = "Server connection error. Please try again later or contact support."
	MsgInvalidCredentials    = "Invalid email or password. Please try again."
	MsgAccountExists         = "An account with this email already exists. Please try logging in instead."
	MsgSessionNotSaved       = "Unable to save your session. Please try again."

	MsgSignupNoChallenge      = "Failed to initiate signup. Please try again."
	MsgAccountCreatedRedirect = "Account created successfully! Redirecting..."
	MsgAccountCreatedLogin    = "Account created! Please log in."
	MsgOTPResent              = "Verification code resent! Please check your email."
	MsgLoggedInRedirect       = "Logged in successfully! Redirecting..."
	MsgLoginNoToken           = "Login successful! Please try again."
	MsgVerificationSent       = "Verification email sent! Please check your inbox."
	MsgResetSuccess           = "Password reset successful! You can now log in with your new password."

	MsgSignupFailedPrefix = "Signup failed: "
	MsgLoginFailedPrefix  = "Login failed: "
	MsgResendFailedPrefix = "Failed to resend verification email: "
	MsgGoogleFailedPrefix = "Google login failed: "

	fallbackLogin        = "Login failed"
	fallbackSignup       = "Signup failed"
	fallbackVerify       = "Verification failed"
	fallbackResendCode   = "Failed to resend code"
	fallbackResendVerify = "Failed to resend verification email"
	fallbackResetRequest = "Failed to send reset code"
	fallbackReset        = "Failed to reset password"
	fallbackGoogle       = "Google login failed"
)
