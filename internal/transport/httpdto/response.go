package httpdto

// Response is the envelope every REST endpoint returns. Code uses the same
// error vocabulary as the realtime channel so clients share one mapping.
type Response[T any] struct {
	Success           bool   `json:"success"`
	Data              T      `json:"data,omitempty"`
	Error             string `json:"error,omitempty"`
	Code              string `json:"code,omitempty"`
	RetryAfterSeconds int    `json:"retryAfterSeconds,omitempty"`
}

func NewSuccessResponse[T any](data T) Response[T] {
	return Response[T]{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(err string, code string) Response[any] {
	return Response[any]{
		Success: false,
		Error:   err,
		Code:    code,
	}
}

// NewRateLimitedResponse mirrors the Retry-After header in the body for
// clients that only read JSON.
func NewRateLimitedResponse(retryAfterSeconds int) Response[any] {
	return Response[any]{
		Success:           false,
		Error:             "rate limit exceeded",
		Code:              "RATE_LIMITED",
		RetryAfterSeconds: retryAfterSeconds,
	}
}
