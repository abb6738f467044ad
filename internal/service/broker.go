// internal/service/broker.go
package service

import (
	"context"
	"sync"

	appErrors "github.com/inboxpilot/warmup-backend/internal/errors"
	"github.com/inboxpilot/warmup-backend/internal/model"
	"github.com/inboxpilot/warmup-backend/internal/provider"
	"github.com/inboxpilot/warmup-backend/internal/repository"
)

// TokenBroker hands out provider credentials for dispatch attempts. Refreshes
// are serialized per account so concurrent dispatches against the same
// mailbox cannot race each other into a refresh storm.
type TokenBroker struct {
	Accounts repository.AccountRepositoryInterface
	Provider provider.EmailProvider

	mu    sync.Mutex
	locks map[int]*sync.Mutex
	cache map[int]string
}

func NewTokenBroker(accounts repository.AccountRepositoryInterface, p provider.EmailProvider) *TokenBroker {
	return &TokenBroker{
		Accounts: accounts,
		Provider: p,
		locks:    map[int]*sync.Mutex{},
		cache:    map[int]string{},
	}
}

// AccessToken returns the current token for the account, preferring one
// refreshed earlier in this process over the persisted one.
func (b *TokenBroker) AccessToken(ctx context.Context, account *model.EmailAccount) (string, error) {
	if token := b.cached(account.ID); token != "" {
		return token, nil
	}
	if account.AccessToken == "" {
		return "", appErrors.NewAuth("token lookup", nil)
	}
	b.setCached(account.ID, account.AccessToken)
	return account.AccessToken, nil
}

// Refresh exchanges the refresh token for a new pair and writes it back to
// the account store immediately. Only one refresh per account runs at a time;
// a caller holding a token another dispatch already replaced gets the fresh
// one without a second provider call.
func (b *TokenBroker) Refresh(ctx context.Context, account *model.EmailAccount, staleToken string) (string, error) {
	lock := b.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	if token := b.cached(account.ID); token != "" && token != staleToken {
		return token, nil
	}

	pair, err := b.Provider.RefreshToken(ctx, account.RefreshToken)
	if err != nil {
		return "", err
	}

	if err := b.Accounts.UpdateTokens(account.ID, pair.AccessToken, pair.RefreshToken, pair.ExpiresIn); err != nil {
		return "", appErrors.NewPersistence("update tokens", err)
	}

	account.AccessToken = pair.AccessToken
	account.RefreshToken = pair.RefreshToken
	b.setCached(account.ID, pair.AccessToken)
	return pair.AccessToken, nil
}

func (b *TokenBroker) accountLock(accountID int) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	lock, ok := b.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		b.locks[accountID] = lock
	}
	return lock
}

func (b *TokenBroker) cached(accountID int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cache[accountID]
}

func (b *TokenBroker) setCached(accountID int, token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache[accountID] = token
}
