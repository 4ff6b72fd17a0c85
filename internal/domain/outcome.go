package domain

// OutcomeStatus tags the result of a session resolution.
type OutcomeStatus int

const (
	// StatusAuthorized admits the request with decoded claims attached.
	StatusAuthorized OutcomeStatus = iota
	// StatusRedirect sends the caller through the login round-trip.
	StatusRedirect
	// StatusDenied rejects the request with a structured 401 body.
	StatusDenied
)

// Outcome is the result of resolving one request's session. Created fresh per
// request and consumed immediately by the gate; never stored.
type Outcome struct {
	Status OutcomeStatus

	// Claims is set when Status is StatusAuthorized.
	Claims Claims

	// Fresh carries new credentials produced by a refresh exchange. The gate
	// must write them onto the outbound response before returning it.
	Fresh *Credentials

	// LoginURL and ReturnTo are set when Status is StatusRedirect.
	LoginURL string
	ReturnTo string

	// Reason is set when Status is StatusDenied.
	Reason string
}

// Policy controls how a resolution failure is rendered.
type Policy struct {
	// RedirectOnFail sends a 307 to the login handler instead of a 401.
	RedirectOnFail bool
	// ReturnTo overrides the post-login destination. When empty, the current
	// request URL is captured instead.
	ReturnTo string
}
