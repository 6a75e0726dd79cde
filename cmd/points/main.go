package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"woovideo/internal/adapter/repo"
	"woovideo/internal/infra"
	"woovideo/internal/middleware"
)

func main() {
	var (
		idFlag     int64
		amountFlag int64
		printToken bool
		tokenTTL   time.Duration
	)

	flag.Int64Var(&idFlag, "id", 0, "user ID to update")
	flag.Int64Var(&amountFlag, "amount", 0, "points to grant (negative to revoke, balance never drops below 0)")
	flag.BoolVar(&printToken, "print-token", false, "print a development bearer token for the user")
	flag.DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "lifetime of the printed token")
	flag.Parse()

	// Muat .env (opsional)
	_ = godotenv.Load()

	if idFlag <= 0 {
		exitWithError(errors.New("-id must be a positive user ID"))
	}
	if amountFlag == 0 && !printToken {
		exitWithError(errors.New("nothing to do: pass -amount and/or -print-token"))
	}

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to connect database: %w", err))
	}
	defer pool.Close()

	logger := infra.NewLogger("cli").With().Str("cmd", "points").Logger()
	users := repo.NewUserRepository(infra.NewSQLRunner(pool, logger))

	user, err := users.GetByID(ctx, idFlag)
	if err != nil {
		exitWithError(fmt.Errorf("failed to load user %d: %w", idFlag, err))
	}

	if amountFlag != 0 {
		balance, err := users.GrantPoints(ctx, user.ID, amountFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to grant points: %w", err))
		}
		fmt.Printf("User %d (%s) points_balance %d -> %d\n", user.ID, user.Email, user.PointsBalance, balance)
	}

	if printToken {
		secret := os.Getenv("JWT_SECRET")
		token, err := middleware.SignJWT(secret, middleware.TokenClaims{
			Sub:   strconv.FormatInt(user.ID, 10),
			Email: user.Email,
			Exp:   time.Now().Add(tokenTTL).Unix(),
		})
		if err != nil {
			exitWithError(fmt.Errorf("failed to sign token: %w", err))
		}
		fmt.Println(token)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
