package oauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidState is returned when a state blob cannot be decoded or fails verification.
var ErrInvalidState = errors.New("invalid oauth state")

// State is the round-tripped payload carried through the provider in the "state" parameter.
type State struct {
	Token  string `json:"state"`
	ToPath string `json:"to_path"`
}

type stateClaims struct {
	State  string `json:"state"`
	ToPath string `json:"to_path"`
	jwt.RegisteredClaims
}

// StateCodec encodes State as an HS256 signed compact JWT so the blob
// cannot be altered between the start and callback stages.
type StateCodec struct {
	key []byte
	now func() time.Time
}

// NewStateCodec creates a codec signing with key.
func NewStateCodec(key string) (*StateCodec, error) {
	if key == "" {
		return nil, errors.New("state signing key is empty")
	}
	return &StateCodec{key: []byte(key), now: time.Now}, nil
}

// Encode returns the signed blob for s.
func (c *StateCodec) Encode(s State) (string, error) {
	claims := stateClaims{
		State:  s.Token,
		ToPath: s.ToPath,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(c.now()),
		},
	}
	blob, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return blob, nil
}

// Decode verifies and decodes a blob produced by Encode.
// An empty blob decodes to an empty State; providers omit state on some error redirects.
func (c *StateCodec) Decode(blob string) (*State, error) {
	if blob == "" {
		return &State{}, nil
	}

	var claims stateClaims
	_, err := jwt.ParseWithClaims(blob, &claims, func(*jwt.Token) (any, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}

	return &State{Token: claims.State, ToPath: claims.ToPath}, nil
}
