package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"authgate/internal/domain"

	"github.com/google/uuid"
)

// stateTTL bounds how long an issued state parameter stays valid. Matches the
// return-to cookie lifetime.
const stateTTL = 5 * time.Minute

// HMACStateCodec issues and verifies OAuth2 state parameters as
// HMAC-SHA256-signed nonces. The state is self-contained: no server-side
// storage is needed to verify it on the callback.
// Implements domain.StateCodec.
type HMACStateCodec struct {
	secret []byte
	now    func() time.Time
}

// NewHMACStateCodec creates a new state codec.
func NewHMACStateCodec(secret string) *HMACStateCodec {
	return &HMACStateCodec{secret: []byte(secret), now: time.Now}
}

// Issue creates a signed state parameter: nonce.timestamp.signature.
func (c *HMACStateCodec) Issue() (string, error) {
	if len(c.secret) == 0 {
		return "", domain.ErrStateSecretMissing
	}

	nonce := uuid.NewString()
	ts := strconv.FormatInt(c.now().Unix(), 10)
	return fmt.Sprintf("%s.%s.%s", nonce, ts, c.sign(nonce, ts)), nil
}

// Verify checks the signature and expiry of a state parameter returned by
// the provider.
func (c *HMACStateCodec) Verify(state string) error {
	if len(c.secret) == 0 {
		return domain.ErrStateSecretMissing
	}

	parts := strings.Split(state, ".")
	if len(parts) != 3 {
		return domain.ErrStateMismatch
	}
	nonce, ts, sig := parts[0], parts[1], parts[2]

	if !hmac.Equal([]byte(sig), []byte(c.sign(nonce, ts))) {
		return domain.ErrStateMismatch
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return domain.ErrStateMismatch
	}
	if c.now().Sub(time.Unix(issued, 0)) > stateTTL {
		return fmt.Errorf("%w: state expired", domain.ErrStateMismatch)
	}
	return nil
}

func (c *HMACStateCodec) sign(nonce, ts string) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(nonce))
	mac.Write([]byte("."))
	mac.Write([]byte(ts))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
