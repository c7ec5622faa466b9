package values

type contextKey string

// Status vocabulary shared by helpers and handlers. util.StatusCode maps
// each one to an HTTP status.
const (
	Success         = "success"
	Created         = "created"
	Error           = "error"
	SystemErr       = "system error"
	BadRequestBody  = "bad-request-body"
	InvalidPayload  = "invalid-payload"
	Unprocessable   = "unprocessable"
	NotAllowed      = "not-allowed"
	Conflict        = "conflict"
	NotFound        = "not-found"
	NotAuthorised   = "not-authorised"
	TokenExpired    = "token-expired"
	ActiveLogin     = "active-login"
	TooManyRequests = "too-many-requests"
)

const (
	HeaderRequestSource = "X-Request-Source"
	HeaderRequestID     = "X-Request-ID"

	DefaultRequestSource = "web"
)

const (
	ContextTracingKey contextKey = "tracing"
	ContextUserKey    contextKey = "user_id"
)
