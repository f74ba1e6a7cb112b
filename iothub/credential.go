package iothub

import (
	"bytes"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Algorithm names a supported token signing algorithm
type Algorithm string

const (
	// RS256 signs with an RSA private key
	RS256 Algorithm = "RS256"
	// ES256 signs with a P-256 EC private key
	ES256 Algorithm = "ES256"
)

// Valid reports whether the algorithm is one of the supported set
func (a Algorithm) Valid() bool {
	return a == RS256 || a == ES256
}

// Credential is the mutable token state attached to a session.
// Token and ExpiresAt are rewritten on each renewal; PrivateKey may be
// replaced between renewals.
type Credential struct {
	Algorithm  Algorithm
	PrivateKey []byte
	Token      string
	ExpiresAt  int64
	Lifetime   int64
}

// CheckPEM performs the shallow structural key check: presence of PEM
// armor markers, nothing more. Key/algorithm compatibility is only
// discovered at issuance.
func CheckPEM(keyPEM []byte) error {
	if !bytes.Contains(keyPEM, []byte("-----BEGIN ")) ||
		!bytes.Contains(keyPEM, []byte("-----END ")) {
		return configErrorf("private key is not PEM encoded")
	}
	return nil
}

// IssueToken signs a claim set of exactly {aud, exp} with the given key.
// Key material incompatible with the algorithm surfaces here as an
// IssueError wrapping the parse or signing failure.
func IssueToken(alg Algorithm, keyPEM []byte, audience string, expiresAt int64) (string, error) {
	if !alg.Valid() {
		return "", configErrorf("unsupported algorithm %q", alg)
	}
	if err := CheckPEM(keyPEM); err != nil {
		return "", err
	}
	var key interface{}
	var err error
	switch alg {
	case RS256:
		key, err = jwt.ParseRSAPrivateKeyFromPEM(keyPEM)
	case ES256:
		key, err = jwt.ParseECPrivateKeyFromPEM(keyPEM)
	}
	if err != nil {
		return "", &IssueError{Cause: err}
	}
	claims := jwt.MapClaims{"aud": audience, "exp": expiresAt}
	token, err := jwt.NewWithClaims(jwt.GetSigningMethod(string(alg)), claims).SignedString(key)
	if err != nil {
		return "", &IssueError{Cause: err}
	}
	return token, nil
}
