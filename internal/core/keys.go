package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresthedesigner/videodaddychat/internal/catalog"
	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/cryptox"
	"github.com/andresthedesigner/videodaddychat/internal/logging"
	"github.com/andresthedesigner/videodaddychat/internal/store"
)

// EnvKeys looks up server-wide provider keys. *config.Config implements it.
type EnvKeys interface {
	ProviderKey(provider string) string
}

// ProviderKeyStatus is what the providers endpoint reports for one provider.
type ProviderKeyStatus struct {
	Provider   string `json:"provider"`
	HasUserKey bool   `json:"hasUserKey"`
	HasEnvKey  bool   `json:"hasEnvKey"`
}

// KeyService manages users' own provider API keys. Keys are sealed with
// cryptox before they reach the store and never leave the service in clear
// text except through EffectiveKey.
type KeyService struct {
	store  store.Store
	cipher *cryptox.KeyCipher
	env    EnvKeys
	log    logging.Logger
}

func NewKeyService(s store.Store, cipher *cryptox.KeyCipher, env EnvKeys, log logging.Logger) *KeyService {
	return &KeyService{store: s, cipher: cipher, env: env, log: log}
}

// List returns the providers the user stored keys for.
func (s *KeyService) List(ctx context.Context, userID string) ([]string, error) {
	keys, err := s.store.ListUserKeys(ctx, userID)
	if err != nil {
		return nil, err
	}
	providers := make([]string, 0, len(keys))
	for _, k := range keys {
		providers = append(providers, k.Provider)
	}
	return providers, nil
}

// ProviderStatus maps every keyed provider to whether the user has a key.
func (s *KeyService) ProviderStatus(ctx context.Context, userID string) (map[string]bool, error) {
	providers, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	status := make(map[string]bool, len(catalog.KeyedProviders))
	for _, p := range catalog.KeyedProviders {
		status[p] = false
	}
	for _, p := range providers {
		status[p] = true
	}
	return status, nil
}

func (s *KeyService) GetByProvider(ctx context.Context, userID, provider string) (*store.UserKey, error) {
	return s.store.GetUserKey(ctx, userID, provider)
}

// Upsert encrypts and stores a key, reporting whether it is the first key
// for that provider.
func (s *KeyService) Upsert(ctx context.Context, userID, provider, apiKey string) (bool, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" || apiKey == "" {
		return false, common.NewValidationError("Provider and API key are required")
	}
	if !catalog.IsKeyedProvider(provider) {
		return false, common.NewValidationError("Unsupported provider: %s", provider)
	}

	enc, iv, err := s.cipher.Encrypt(apiKey)
	if err != nil {
		return false, fmt.Errorf("failed to encrypt key: %w", err)
	}
	isNew, err := s.store.UpsertUserKey(ctx, &store.UserKey{
		UserID:       userID,
		Provider:     provider,
		EncryptedKey: enc,
		IV:           iv,
	})
	if err != nil {
		return false, err
	}
	s.log.Info(ctx, "user key saved", "user_id", userID, "provider", provider, "key", cryptox.MaskKey(apiKey))
	return isNew, nil
}

func (s *KeyService) Remove(ctx context.Context, userID, provider string) error {
	if strings.TrimSpace(provider) == "" {
		return common.NewValidationError("Provider is required")
	}
	return s.store.DeleteUserKey(ctx, userID, provider)
}

func (s *KeyService) HasKey(ctx context.Context, userID, provider string) (bool, error) {
	_, err := s.store.GetUserKey(ctx, userID, provider)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Status reports user and server keys for one provider. ollama takes no key.
func (s *KeyService) Status(ctx context.Context, userID, provider string) (ProviderKeyStatus, error) {
	st := ProviderKeyStatus{Provider: provider}
	if provider == catalog.ProviderOllama {
		return st, nil
	}
	if userID != "" {
		has, err := s.HasKey(ctx, userID, provider)
		if err != nil {
			return st, err
		}
		st.HasUserKey = has
	}
	st.HasEnvKey = s.env != nil && s.env.ProviderKey(provider) != ""
	return st, nil
}

// EffectiveKey returns the user's own key for provider when one is stored,
// else the server-wide key. An empty result means neither exists.
func (s *KeyService) EffectiveKey(ctx context.Context, userID, provider string) (string, error) {
	if userID != "" && catalog.IsKeyedProvider(provider) {
		k, err := s.store.GetUserKey(ctx, userID, provider)
		switch {
		case err == nil:
			plain, err := s.cipher.Decrypt(k.EncryptedKey, k.IV)
			if err != nil {
				return "", fmt.Errorf("failed to decrypt %s key: %w", provider, err)
			}
			return plain, nil
		case !errors.Is(err, common.ErrorNotFound):
			return "", err
		}
	}
	if s.env == nil {
		return "", nil
	}
	return s.env.ProviderKey(provider), nil
}
