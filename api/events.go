package api

// AuthEvent names a change in the authentication state observed by a client.
type AuthEvent string

const (
	// EventInitialSession is delivered once, when a client first resolves its stored session.
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	// EventSignedIn follows a successful password sign-in.
	EventSignedIn AuthEvent = "SIGNED_IN"
	// EventSignedOut follows a sign-out or an unrecoverable refresh failure.
	EventSignedOut AuthEvent = "SIGNED_OUT"
	// EventTokenRefreshed follows a refresh token rotation.
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)
