package ctl

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/iudanet/bingo/internal/models"
	"github.com/iudanet/bingo/internal/server/session"
)

func (c *Ctl) runSessions(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: sessions count|list|sweep|clear", ErrUsage)
	}

	switch args[0] {
	case "count":
		n, err := c.sessions.Length(ctx)
		if err != nil {
			return fmt.Errorf("count sessions: %w", err)
		}
		c.io.Println(n)
	case "list":
		return c.listSessions(ctx)
	case "sweep":
		n, err := session.NewSweeper(c.sessions, 0, c.logger, nil).SweepOnce(ctx)
		if err != nil {
			return fmt.Errorf("sweep sessions: %w", err)
		}
		c.io.Printf("Deleted %d expired sessions\n", n)
	case "clear":
		if err := c.sessions.Clear(ctx); err != nil {
			return fmt.Errorf("clear sessions: %w", err)
		}
		c.io.Println("All sessions deleted")
	default:
		return fmt.Errorf("%w: unknown sessions command %q", ErrUsage, args[0])
	}
	return nil
}

func (c *Ctl) listSessions(ctx context.Context) error {
	entries, err := c.sessions.All(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	slices.SortFunc(entries, func(a, b *models.SessionEntry) int {
		return a.Expire.Compare(b.Expire)
	})

	now := c.now()
	for _, e := range entries {
		user := e.Data.UserID()
		if user == "" {
			user = "anonymous"
		}
		state := "active"
		if !e.Expire.After(now) {
			state = "expired"
		}
		c.io.Printf("%-10s %-36s %s %s\n", session.MaskID(e.SID), user, e.Expire.UTC().Format(time.RFC3339), state)
	}
	c.io.Printf("Total: %d\n", len(entries))
	return nil
}
