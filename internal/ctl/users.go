package ctl

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/storage"
	"github.com/iudanet/bingo/internal/validation"
)

func (c *Ctl) runUsers(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: users promote|demote <email>", ErrUsage)
	}

	var accountType models.AccountType
	switch args[0] {
	case "promote":
		accountType = models.AccountAdmin
	case "demote":
		accountType = models.AccountUser
	default:
		return fmt.Errorf("%w: unknown users command %q", ErrUsage, args[0])
	}

	email := validation.NormalizeEmail(args[1])
	user, err := c.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("user %s not found", email)
		}
		return fmt.Errorf("get user: %w", err)
	}

	if err := c.users.UpdateAccountType(ctx, user.ID, accountType); err != nil {
		return fmt.Errorf("update account type: %w", err)
	}

	c.io.Printf("%s is now %s\n", email, accountType)
	return nil
}
