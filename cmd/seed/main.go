package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/techblog/backend/config"
	"github.com/techblog/backend/pkg/helpers"
)

// Seeds the first superadmin. Idempotent: if any privileged account already
// exists the run is a no-op, so rerunning a deploy never mints extra admins.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	var privileged int
	if err := db.QueryRow(`SELECT count(*) FROM users WHERE role IN ('admin', 'superadmin')`).Scan(&privileged); err != nil {
		log.Fatalf("failed to check for existing admins: %v", err)
	}
	if privileged > 0 {
		fmt.Println("privileged account already exists; nothing to do")
		return
	}

	hash, err := helpers.HashPassword(cfg.SeedAdminPassword)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (first_name, last_name, email, password_hash, role, is_active)
		VALUES ('Super', 'Admin', $1, $2, 'superadmin', TRUE)
		ON CONFLICT (email) DO UPDATE SET role = 'superadmin', is_active = TRUE
		RETURNING id
	`, cfg.SeedAdminEmail, hash).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed superadmin: %v", err)
	}
	fmt.Printf("seeded superadmin: id=%s email=%s\n", id, cfg.SeedAdminEmail)
}
