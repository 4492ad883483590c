package api

// GrantType selects the flow handled by the token endpoint.
type GrantType string

const (
	// PasswordGrant exchanges email and password for a session.
	// Example: POST /auth/v1/token?grant_type=password
	PasswordGrant GrantType = "password"

	// RefreshTokenGrant exchanges a refresh token for a new session.
	// Example: POST /auth/v1/token?grant_type=refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)

// Credentials is the body of sign-up and password grant requests.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest is the body of a refresh token grant.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// PostChanges is the body of a posts PATCH. Only title and content are mutable.
type PostChanges struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NewPost is a row in the body of a posts POST.
type NewPost struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

// ErrorResponse is the JSON body of every non-2xx API response.
type ErrorResponse struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Description
}
