package serverutils

// Response is the uniform JSON envelope for every API reply.
type Response struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

func SuccessResponse(message string, data interface{}) *Response {
	return &Response{
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(message string, errs interface{}) *Response {
	return &Response{
		Message: message,
		Errors:  errs,
	}
}
