package testutil

// FixedTokenGenerator returns the same pass token every time, so replayed
// scenarios write identical manifests.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator for token. An empty token
// becomes "test-pass-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-pass-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate implements engine.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
