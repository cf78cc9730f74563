package api

import "sync"

// VerificationHeader carries the bot-verification token on mutating requests.
const VerificationHeader = "X-Verification-Token"

// TokenSource supplies bot-verification tokens. Tokens are single-use:
// the client invalidates the source after each consumed send and after a
// 403, and a fresh token must be available before the next submission.
type TokenSource interface {
	Token() (string, error)
	Invalidate()
}

// StaticToken is a TokenSource backed by a fixed configured token. It
// re-arms itself on Invalidate, matching pre-shared-secret deployments
// where the same token is valid for every request.
type StaticToken string

func (t StaticToken) Token() (string, error) { return string(t), nil }

func (t StaticToken) Invalidate() {}

// OneShotToken holds a token that is spent once invalidated. Arm supplies
// the next token, e.g. from an interactive verification challenge.
type OneShotToken struct {
	mu    sync.Mutex
	token string
}

// Arm stores the next token to be consumed.
func (t *OneShotToken) Arm(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
}

func (t *OneShotToken) Token() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token, nil
}

func (t *OneShotToken) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
}
