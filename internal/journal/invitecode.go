package journal

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/AlexTLDR/kitchentable/internal/database"
	"github.com/sethvargo/go-retry"
)

// inviteAlphabet leaves out 0, O, 1 and I. Its length of 32 lets a random
// byte map onto it with a mask and no bias.
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const maxInviteCodeRetries = 5

var errInviteCodeTaken = errors.New("invite code already in use")

// GenerateInviteCode returns a random code of the form XXXX-XXXX.
func GenerateInviteCode() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate invite code: %w", err)
	}

	code := make([]byte, 0, 9)
	for i, v := range b {
		if i == 4 {
			code = append(code, '-')
		}
		code = append(code, inviteAlphabet[v&31])
	}
	return string(code), nil
}

// uniqueInviteCode draws codes until one is unused, giving up after
// maxInviteCodeRetries retries.
func (s *Service) uniqueInviteCode(ctx context.Context, q *database.Queries) (string, error) {
	var code string
	backoff := retry.WithMaxRetries(maxInviteCodeRetries, retry.NewConstant(time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		candidate, err := s.codeFn()
		if err != nil {
			return err
		}

		exists, err := q.InviteCodeExists(ctx, candidate)
		if err != nil {
			return err
		}
		if exists {
			return retry.RetryableError(errInviteCodeTaken)
		}

		code = candidate
		return nil
	})
	if errors.Is(err, errInviteCodeTaken) {
		return "", fmt.Errorf("failed to generate unique invite code after %d retries: %w", maxInviteCodeRetries, err)
	}
	if err != nil {
		return "", err
	}

	return code, nil
}
