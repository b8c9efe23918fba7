// Command ledger-token issues a bearer token for a principal, signed with
// JWT_SECRET, for use against the ledger API.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"dailyledger/internal/access"
	"dailyledger/internal/config"
	"dailyledger/internal/log"
)

type issued struct {
	Principal string `json:"principal"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, err := log.NewFromSettings("token", cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	principal := strings.TrimSpace(os.Getenv("TOKEN_PRINCIPAL"))
	if len(os.Args) > 1 {
		principal = strings.TrimSpace(os.Args[1])
	}
	if principal == "" {
		logger.Error("Set TOKEN_PRINCIPAL or pass the principal as the first argument")
		os.Exit(2)
	}

	ttl := 24 * time.Hour
	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if ttl, err = time.ParseDuration(v); err != nil || ttl <= 0 {
			logger.Error("Invalid TOKEN_TTL", "value", v)
			os.Exit(2)
		}
	}

	auth, err := access.NewAuthenticator(cfg.JWTSecret)
	if err != nil {
		logger.Error("Cannot sign tokens", log.FieldError, err.Error())
		os.Exit(1)
	}
	tok, err := auth.IssueToken(principal, ttl)
	if err != nil {
		logger.Error("Token signing failed", log.FieldError, err.Error())
		os.Exit(1)
	}
	out := issued{Principal: principal, Token: tok, ExpiresAt: time.Now().Add(ttl).UnixNano()}

	outFile := os.Getenv("TOKEN_FILE")
	if outFile == "" {
		_ = json.NewEncoder(os.Stdout).Encode(out)
		return
	}
	f, err := os.OpenFile(outFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		logger.Error("Open token file", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(out); err != nil {
		logger.Error("Write token", log.FieldError, err.Error())
		os.Exit(1)
	}
	logger.Info("Saved token", "file", outFile, log.FieldPrincipal, principal)
}
