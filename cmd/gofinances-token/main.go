// Command gofinances-token issues a bearer token for local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gofinances/internal/auth"
	"gofinances/internal/cli"
	"gofinances/internal/config"
	"gofinances/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := config.Load()

	userID := flag.String("user", "", "user id (token subject)")
	name := flag.String("name", "", "display name")
	ttl := flag.Duration("ttl", cfg.JWTExpiresIn, "token lifetime")
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "usage: gofinances-token -user <id> [-name <name>] [-ttl 24h]")
		os.Exit(2)
	}
	if len(cfg.JWTSecret) < 16 {
		logger.Error("JWT_SECRET must be set and at least 16 characters long",
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}

	token, expires, err := auth.NewTokenService(cfg.JWTSecret, *ttl).GenerateToken(*userID, *name)
	if err != nil {
		logger.Error("Failed to generate token", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Debug("Token issued", log.FieldUserID, *userID, "expires_at", expires.Format(time.RFC3339))
	fmt.Println(token)
}
