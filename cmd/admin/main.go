package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/accountkeeper/internal/admincli"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/server/auth"
	"github.com/dmitrijs2005/accountkeeper/internal/server/config"
	"github.com/dmitrijs2005/accountkeeper/internal/server/mailer"
	"github.com/dmitrijs2005/accountkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountkeeper/internal/server/store"
	"github.com/dmitrijs2005/accountkeeper/internal/server/users"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	opts, err := admincli.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	backend, err := store.Open(store.Options{
		Kind:          cfg.StoreKind,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("store init error: %v", err)
	}
	rm := repomanager.NewKVRepositoryManager(backend)
	defer rm.Close()

	issuer, err := auth.NewIssuer(rm.RefreshTokens(), rm.Users(), auth.Options{
		Secret:     cfg.SecretKey,
		Algorithm:  cfg.SigningAlgorithm,
		Audience:   cfg.TokenAudience,
		Issuer:     cfg.TokenIssuer,
		AccessTTL:  cfg.AccessTokenValidityDuration,
		RefreshTTL: cfg.RefreshTokenValidityDuration,
	})
	if err != nil {
		log.Fatalf("token issuer init error: %v", err)
	}

	logger := logging.Discard()
	dir := users.NewService(rm, issuer, mailer.NewLogMailer(logger, cfg.ResetPasswordURL), logger, users.Options{
		PasswordTokenTTL: cfg.PasswordTokenValidityDuration,
	})

	if err := admincli.Run(ctx, dir, opts, os.Stdout); err != nil {
		rm.Close()
		log.Fatalf("%v", err)
	}

}
