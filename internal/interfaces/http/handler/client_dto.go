package handler

// VerifyDocumentsRequest records the admin KYC decision
type VerifyDocumentsRequest struct {
	Verified *bool `json:"verified" binding:"required"`
}

// ForgotPasswordRequest starts a client password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// ValidateResetTokenRequest checks a reset link before showing the form
type ValidateResetTokenRequest struct {
	Token string `json:"token" binding:"required,max=128"`
}

// ValidateResetTokenResponse reports whether a reset token is live
type ValidateResetTokenResponse struct {
	Valid bool `json:"valid"`
}

// ResetPasswordRequest completes a client password reset
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}
