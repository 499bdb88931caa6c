package sensorauth

import "github.com/MrEthical07/sensorauth/internal/flows"

// Messages shown on the auth surfaces. Controllers put them verbatim in
// their state snapshots.
const (
	MsgCredentialsRequired = flows.MsgCredentialsRequired
	MsgEmailFirst          = flows.MsgEmailFirst
	MsgNameTooShort        = flows.MsgNameTooShort
	MsgEmailRequired       = flows.MsgEmailRequired
	MsgPasswordTooShort    = flows.MsgPasswordTooShort
	MsgPasswordMismatch    = flows.MsgPasswordMismatch
	MsgPasswordComposition = flows.MsgPasswordComposition
	MsgInvalidOTP          = flows.MsgInvalidOTP
	MsgInvalidResetEmail   = flows.MsgInvalidResetEmail

	MsgAuthServerUnreachable = flows.MsgAuthServerUnreachable
	MsgServerUnreachable     = flows.MsgServerUnreachable
	MsgServerConnection      = flows.MsgServerConnection
	MsgInvalidCredentials    = flows.MsgInvalidCredentials
	MsgAccountExists         = flows.MsgAccountExists
	MsgSessionNotSaved       = flows.MsgSessionNotSaved

	MsgSignupNoChallenge      = flows.MsgSignupNoChallenge
	MsgAccountCreatedRedirect = flows.MsgAccountCreatedRedirect
	MsgAccountCreatedLogin    = flows.MsgAccountCreatedLogin
	MsgOTPResent              = flows.MsgOTPResent
	MsgLoggedInRedirect       = flows.MsgLoggedInRedirect
	MsgLoginNoToken           = flows.MsgLoginNoToken
	MsgVerificationSent       = flows.MsgVerificationSent
	MsgResetSuccess           = flows.MsgResetSuccess
)
