package service

import "github.com/MLH-TTU/MLH-website-sub002/pkg/crypto"

// linkTokenBytes is the entropy of a linking token before encoding.
const linkTokenBytes = 32

// CodeGenerator draws the secrets handed out by the engines.
type CodeGenerator interface {
	// NumericCode returns a fixed-width decimal code, leading zeros kept.
	NumericCode(length int) (string, error)
	// Token returns an opaque, URL-safe, unguessable token.
	Token() (string, error)
}

type secureGenerator struct{}

// NewSecureGenerator returns a CodeGenerator backed by crypto/rand.
func NewSecureGenerator() CodeGenerator { return secureGenerator{} }

func (secureGenerator) NumericCode(length int) (string, error) {
	return crypto.GenerateNumericCode(length)
}

func (secureGenerator) Token() (string, error) {
	return crypto.GenerateRandomString(linkTokenBytes)
}
