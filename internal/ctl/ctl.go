// Package ctl команды администрирования bingoctl: хеширование паролей,
// замер параметров хеша, сессии и роли пользователей.
package ctl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/iudanet/bingo/internal/iocli"
	"github.com/iudanet/bingo/internal/password"
	"github.com/iudanet/bingo/internal/server/storage"
)

// PasswordEnv переменная окружения с паролем для hash/verify (для скриптов)
const PasswordEnv = "BINGO_CTL_PASSWORD"

var (
	// ErrUsage неизвестная команда или неверные аргументы
	ErrUsage = errors.New("invalid usage")
	// ErrNoMatch пароль не совпал с записью (verify)
	ErrNoMatch = errors.New("password does not match")
)

// Ctl выполняет команды bingoctl. users и sessions могут быть nil
// для команд, которым не нужно хранилище (см. NeedsStorage)
type Ctl struct {
	io       iocli.IO
	logger   *slog.Logger
	hasher   *password.Hasher
	users    storage.UserStorage
	sessions storage.SessionStore
	getenv   func(string) string
	now      func() time.Time
}

func New(io iocli.IO, logger *slog.Logger, hasher *password.Hasher, users storage.UserStorage, sessions storage.SessionStore) *Ctl {
	return &Ctl{
		io:       io,
		logger:   logger,
		hasher:   hasher,
		users:    users,
		sessions: sessions,
		getenv:   os.Getenv,
		now:      time.Now,
	}
}

// NeedsStorage true, если команде нужна база данных
func NeedsStorage(args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "sessions", "users":
		return true
	}
	return false
}

// Run выполняет команду args[0] с аргументами args[1:]
func (c *Ctl) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: command required", ErrUsage)
	}

	switch args[0] {
	case "hash":
		return c.runHash(ctx)
	case "verify":
		return c.runVerify(ctx, args[1:])
	case "bench":
		return c.runBench(ctx, args[1:])
	case "sessions":
		return c.runSessions(ctx, args[1:])
	case "users":
		return c.runUsers(ctx, args[1:])
	case "help":
		PrintUsage(c.io)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
}

func PrintUsage(io iocli.IO) {
	io.Println("Bingo admin tool")
	io.Println()
	io.Println("Usage:")
	io.Println("  bingoctl [OPTIONS] COMMAND")
	io.Println()
	io.Println("Options are the server options (-config, -d, -env, -session-backend, ...)")
	io.Println("and BINGO_* environment variables; hash settings and peppers come from there.")
	io.Println()
	io.Println("Commands:")
	io.Println("  hash                     Read a password and print its credential record")
	io.Println("  verify <record>          Check a password against a credential record")
	io.Println("  bench [-n N]             Measure hash and verify time with current settings")
	io.Println("  sessions count           Number of stored sessions")
	io.Println("  sessions list            Stored sessions with masked ids")
	io.Println("  sessions sweep           Delete expired sessions now")
	io.Println("  sessions clear           Delete all sessions (logs everyone out)")
	io.Println("  users promote <email>    Grant the admin role")
	io.Println("  users demote <email>     Revoke the admin role")
	io.Println()
	io.Println("The password is read from " + PasswordEnv + " or prompted without echo.")
}
