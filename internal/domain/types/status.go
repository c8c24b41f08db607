package types

// Protocol status codes. Zero is the success sentinel carried in the payload,
// negative values are synthesized on the client side.
const (
	StatusOK              = 0
	StatusTransportFailed = -1
	StatusDecodeFailed    = -2
)

// LoginSuccess is the message returned by a successful login.
const LoginSuccess = "LOGIN_SUCCESS"
