package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresthedesigner/videodaddychat/internal/common"
	"github.com/andresthedesigner/videodaddychat/internal/dbx"
)

const userKeyColumns = `id, user_id, provider, encrypted_key, iv, created_at, updated_at`

func (s *sqlStore) ListUserKeys(ctx context.Context, userID string) ([]UserKey, error) {
	keys := []UserKey{}
	err := s.selectAll(ctx, s.db, &keys,
		"SELECT "+userKeyColumns+" FROM user_keys WHERE user_id = ? ORDER BY provider", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user keys: %w", err)
	}
	return keys, nil
}

func (s *sqlStore) GetUserKey(ctx context.Context, userID, provider string) (*UserKey, error) {
	var k UserKey
	err := s.get(ctx, s.db, &k,
		"SELECT "+userKeyColumns+" FROM user_keys WHERE user_id = ? AND provider = ?", userID, provider)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get user key: %w", err)
	}
	return &k, nil
}

// UpsertUserKey stores the encrypted key for (user, provider) and reports
// whether a new row was created.
func (s *sqlStore) UpsertUserKey(ctx context.Context, k *UserKey) (bool, error) {
	now := s.nowMillis()
	created := false
	err := dbx.WithTx(ctx, s.db, func(ctx context.Context, tx *sqlx.Tx) error {
		n, err := s.exec(ctx, tx,
			"UPDATE user_keys SET encrypted_key = ?, iv = ?, updated_at = ? WHERE user_id = ? AND provider = ?",
			k.EncryptedKey, k.IV, now, k.UserID, k.Provider)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if k.ID == "" {
			k.ID = newID()
		}
		k.CreatedAt = now
		_, err = s.exec(ctx, tx, `INSERT INTO user_keys (`+userKeyColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			k.ID, k.UserID, k.Provider, k.EncryptedKey, k.IV, now, now)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to save user key: %w", err)
	}
	k.UpdatedAt = now
	return created, nil
}

func (s *sqlStore) DeleteUserKey(ctx context.Context, userID, provider string) error {
	err := s.execOne(ctx, s.db, "DELETE FROM user_keys WHERE user_id = ? AND provider = ?", userID, provider)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete user key: %w", err)
	}
	return nil
}
