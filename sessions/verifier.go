package sessions

import (
	"errors"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/patrickmn/go-cache"
)

// VerifierStore holds PKCE verifiers between login start and callback. It is
// deliberately separate from Repo: entries are short-lived and read once.
type VerifierStore struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewVerifierStore(ttl time.Duration) *VerifierStore {
	return &VerifierStore{
		cache: cache.New(ttl, 2*ttl),
	}
}

// Put stores verifier under the OAuth state value
func (v *VerifierStore) Put(state, verifier string) error {
	if state == "" || verifier == "" {
		return errors.New("state and verifier are required")
	}
	v.cache.Set(state, verifier, cache.DefaultExpiration)
	return nil
}

// Take returns the verifier for state and erases it. A second Take for the
// same state fails with ErrVerifierNotFound.
func (v *VerifierStore) Take(state string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	x, found := v.cache.Get(state)
	v.cache.Delete(state)
	if !found {
		return "", apperrors.ErrVerifierNotFound
	}
	return x.(string), nil
}
