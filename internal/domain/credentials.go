package domain

// Credentials are the tokens minted by the identity provider from a code or
// refresh exchange. They are transient: the caller projects them into cookies
// on the outbound response and never persists them anywhere else.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether the credentials carry no usable token.
func (c *Credentials) Empty() bool {
	return c == nil || (c.AccessToken == "" && c.RefreshToken == "")
}

// Claims holds the decoded identity attributes from a verified access token
// or token exchange. Claims are normalized at the provider boundary and are
// only trusted within the request that produced them.
type Claims map[string]any

// Subject returns the "sub" claim, or "" if absent.
func (c Claims) Subject() string {
	return c.stringClaim("sub")
}

// Email returns the "email" claim, or "" if absent.
func (c Claims) Email() string {
	return c.stringClaim("email")
}

func (c Claims) stringClaim(key string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return ""
}
