package token

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	ScopeActivation = "activation"
	ScopeRecovery   = "recovery"
)

// Token is a single-use credential mailed to a user. Only its hash is
// stored; the plaintext exists in the outgoing mail alone.
type Token struct {
	Hash   []byte    `db:"token_hash"`
	UserID string    `db:"user_id"`
	Scope  string    `db:"scope"`
	Expiry time.Time `db:"expiry"`

	Plaintext string `db:"-"`
}

func Hash(plaintext string) []byte {
	h := sha256.Sum256([]byte(plaintext))
	return h[:]
}

func Create(ctx context.Context, db sqlx.ExtContext, tok Token) error {
	const q = `
	INSERT INTO tokens (token_hash, user_id, scope, expiry)
	VALUES (:token_hash, :user_id, :scope, :expiry)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, tok); err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}
	return nil
}

// FetchValid resolves a plaintext token to its owner, rejecting unknown,
// expired, or wrong-scope tokens alike.
func FetchValid(ctx context.Context, db sqlx.ExtContext, plaintext string, scope string) (Token, error) {
	const q = `
	SELECT * FROM tokens
	WHERE token_hash = $1 AND scope = $2 AND expiry > $3`

	var tok Token
	if err := sqlx.GetContext(ctx, db, &tok, q, Hash(plaintext), scope, time.Now().UTC()); err != nil {
		return Token{}, fmt.Errorf("fetching token: %w", err)
	}
	return tok, nil
}

func DeleteByUser(ctx context.Context, db sqlx.ExtContext, userID string, scope string) error {
	const q = `DELETE FROM tokens WHERE user_id = $1 AND scope = $2`

	if _, err := db.ExecContext(ctx, q, userID, scope); err != nil {
		return fmt.Errorf("deleting tokens of user[%s]: %w", userID, err)
	}
	return nil
}
