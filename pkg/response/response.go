package response

// ErrorBody is the wire format for every error response: a stable machine
// code, a human-readable message, and a free-form detail map. Internals
// (stack traces, SQL, remote identifiers) never go in here.
type ErrorBody struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

// Envelope wraps list-style payloads that carry pagination info.
type Envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Total  int64       `json:"total"`
	Page   int         `json:"page,omitempty"`
	Limit  int         `json:"limit,omitempty"`
}

// Error builds a standard error body.
func Error(code, message string, details map[string]any) ErrorBody {
	if details == nil {
		details = map[string]any{}
	}
	return ErrorBody{Error: code, Message: message, Details: details}
}

// List builds a paginated success envelope.
func List(data interface{}, total int64, page, limit int) Envelope {
	return Envelope{Status: "success", Data: data, Total: total, Page: page, Limit: limit}
}
