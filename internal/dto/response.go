package dto

// MessageResponse and ErrorResponse keep the capitalised keys existing
// clients already parse.
type MessageResponse struct {
	Message string `json:"Message"`
}

type ErrorResponse struct {
	Error string `json:"Error"`
}

type MeResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}
