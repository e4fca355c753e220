package response

// Response is the envelope of every API answer.
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Fields     []string    `json:"fields,omitempty"`
}

func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Invalid is an error answer naming the fields the user has to fix.
func Invalid(statusCode int, err string, fields []string) Response {
	r := Error(statusCode, err)
	r.Fields = fields
	return r
}
