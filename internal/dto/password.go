package dto

type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	NewPassword    string `json:"newPassword,omitempty"`
	RepeatPassword string `json:"repeatPassword,omitempty"`
}
