package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/erp/acctsync/internal/infrastructure/auth"
	"github.com/erp/acctsync/internal/infrastructure/config"
	"github.com/erp/acctsync/internal/infrastructure/logger"
	"go.uber.org/zap"
)

func main() {
	var (
		subject string
		scopes  string
		ttl     time.Duration
	)
	flag.StringVar(&subject, "subject", "", "Operator or service the token is issued to (required)")
	flag.StringVar(&scopes, "scopes", auth.ScopeRead, "Comma separated scopes (accounting:read, accounting:write)")
	flag.DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	if subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	granted, err := parseScopes(scopes)
	if err != nil {
		log.Fatal("Invalid scopes", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	svc, err := auth.NewJWTService(cfg.JWT)
	if err != nil {
		log.Fatal("Failed to create JWT service", zap.Error(err))
	}

	token, expiresAt, err := svc.IssueToken(subject, granted, ttl)
	if err != nil {
		log.Fatal("Failed to issue token", zap.Error(err))
	}
	log.Info("Token issued",
		zap.String("subject", subject),
		zap.Strings("scopes", granted),
		zap.Time("expires_at", expiresAt),
	)
	fmt.Println(token)
}

func parseScopes(raw string) ([]string, error) {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		switch s {
		case "":
			continue
		case auth.ScopeRead, auth.ScopeWrite:
			out = append(out, s)
		default:
			return nil, fmt.Errorf("unknown scope %q", s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one scope is required")
	}
	return out, nil
}
