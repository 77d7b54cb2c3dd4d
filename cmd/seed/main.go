// seed inserts development sample data for local testing: a HOTP and a TOTP
// token for the dev user, grouped in a smartphone container.
// Idempotent: skips inserting when the dev user already owns tokens.
package main

import (
	"context"
	"log"
	"time"

	"tokenforge/engine/internal/audit"
	auditrepo "tokenforge/engine/internal/audit/repository"
	"tokenforge/engine/internal/challenge"
	chrepo "tokenforge/engine/internal/challenge/repository"
	"tokenforge/engine/internal/config"
	"tokenforge/engine/internal/container"
	contrepo "tokenforge/engine/internal/container/repository"
	contservice "tokenforge/engine/internal/container/service"
	"tokenforge/engine/internal/db"
	"tokenforge/engine/internal/security"
	"tokenforge/engine/internal/token"
	"tokenforge/engine/internal/token/domain"
	"tokenforge/engine/internal/token/hotp"
	tokenrepo "tokenforge/engine/internal/token/repository"
	tokenservice "tokenforge/engine/internal/token/service"
	"tokenforge/engine/internal/token/totp"
)

const (
	devUserID = "dev-user-001"
	devRealm  = "dev"
	devPIN    = "1234"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("seed: DATABASE_URL is required")
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tokens := tokenrepo.NewPostgresRepository(database)
	existing, err := tokens.ListByOwner(ctx, devUserID, devRealm)
	if err != nil {
		log.Fatalf("seed: list tokens: %v", err)
	}
	if len(existing) > 0 {
		log.Printf("seed: dev user already owns %d tokens, nothing to do", len(existing))
		return
	}

	engine := challenge.NewEngine(chrepo.NewPostgresRepository(database), cfg)
	base := token.NewBase(security.NewHasher(cfg.BcryptCost), engine)
	registry, err := token.NewRegistry(hotp.New(base), totp.New(base))
	if err != nil {
		log.Fatalf("seed: token registry: %v", err)
	}
	auditLog := audit.NewLogger(auditrepo.NewPostgresRepository(database))
	tokenSvc := tokenservice.NewService(registry, tokens, engine, auditLog)

	contRegistry, err := container.NewRegistry(
		container.NewGeneric(registry.Types()),
		container.NewSmartphone(),
		container.NewYubikey(),
	)
	if err != nil {
		log.Fatalf("seed: container registry: %v", err)
	}
	contSvc := contservice.NewService(contRegistry, contrepo.NewPostgresRepository(database),
		contrepo.NewPostgresTemplateRepository(database), tokens, tokenSvc, auditLog)

	hotpRes, err := tokenSvc.Enroll(ctx, "", "hotp", domain.EnrollInput{
		GenKey: true, PIN: devPIN, Description: "dev hotp token",
	}, devUserID, devRealm)
	if err != nil {
		log.Fatalf("seed: enroll hotp: %v", err)
	}
	totpRes, err := tokenSvc.Enroll(ctx, "", "totp", domain.EnrollInput{
		GenKey: true, PIN: devPIN, Description: "dev totp token",
	}, devUserID, devRealm)
	if err != nil {
		log.Fatalf("seed: enroll totp: %v", err)
	}

	cont, err := contSvc.Create(ctx, "smartphone", "dev phone", devUserID, devRealm)
	if err != nil {
		log.Fatalf("seed: create container: %v", err)
	}
	for _, serial := range []string{hotpRes.Serial, totpRes.Serial} {
		if err := contSvc.AddToken(ctx, cont.Serial, serial); err != nil {
			log.Fatalf("seed: add %s to %s: %v", serial, cont.Serial, err)
		}
	}

	log.Printf("seed: created tokens %s, %s in container %s (PIN %s)", hotpRes.Serial, totpRes.Serial, cont.Serial, devPIN)
}
