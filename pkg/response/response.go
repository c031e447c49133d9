package response

// Machine-readable error codes carried in Response.Code
const (
	CodeInvalidCredentials     = "invalid_credentials"
	CodeInsufficientPermission = "insufficient_permission"
	CodeNotFound               = "not_found"
	CodeConflict               = "conflict"
	CodeValidation             = "validation_failed"
	CodeForbiddenOperation     = "operation_not_allowed"
	CodeInternal               = "internal_error"
	CodeDataIntegrity          = "data_integrity"
)

// Response represents a standard API response format
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"`
	// MissingPermissions is set on insufficient_permission and lists every unmet code
	MissingPermissions []string `json:"missing_permissions,omitempty"`
}

// Page wraps one page of a list endpoint
type Page struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success returns a standard success response wrapping the data
func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

// Paginated returns a success response holding one page of items
func Paginated(statusCode int, items interface{}, total int64, page, limit int) Response {
	return Success(statusCode, Page{Items: items, Total: total, Page: page, Limit: limit})
}

// Error returns a standard error response wrapping the error message
func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// Fail is Error with a machine code attached
func Fail(statusCode int, code, err string) Response {
	res := Error(statusCode, err)
	res.Code = code
	return res
}

// Denied is the 403 body for a principal lacking some required permission codes
func Denied(statusCode int, missing []string) Response {
	res := Fail(statusCode, CodeInsufficientPermission, "insufficient permission")
	res.MissingPermissions = missing
	return res
}
