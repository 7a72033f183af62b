package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/acgh213/promptvault/internal/access"
	"github.com/acgh213/promptvault/internal/auth"
	"github.com/acgh213/promptvault/internal/db"
	"github.com/acgh213/promptvault/internal/prompts"
	"github.com/acgh213/promptvault/internal/subscriptions"
)

type samplePrompt struct {
	title    string
	category string
	tier     access.Tier
	body     string
}

var samples = []samplePrompt{
	{"Meeting notes summary", "productivity", access.TierFree,
		"Summarise the following meeting notes into decisions, owners and open questions:\n\n{{notes}}"},
	{"Cold email opener", "sales", access.TierArchitect,
		"You are a senior SDR. Write three opening lines for a cold email to {{name}} at {{company}}. Reference one recent public event about the company and keep each line under 25 words."},
	{"Architecture review", "engineering", access.TierInitiate,
		"Act as a principal engineer reviewing the design below. List the failure modes, the data consistency risks and the operational burden, then propose the smallest change that removes the worst risk.\n\n{{design}}"},
	{"Board update narrative", "leadership", access.TierElite,
		"Draft a quarterly board update for {{company}}. Open with the single most important number, explain the variance against plan in plain words, and close with the two asks you need from the board."},
}

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "admin123"
	}

	ctx := context.Background()

	if err := db.RunMigrations(databaseURL); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Check if any users exist
	var count int
	err = pool.QueryRow(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		log.Fatalf("failed to query users: %v", err)
	}

	if count > 0 {
		fmt.Println("Database already has users. Skipping seed.")
		return
	}

	adminID := createUser(ctx, pool, "admin@example.com", "Admin User", adminPassword, auth.RoleAdmin)
	memberID := createUser(ctx, pool, "member@example.com", "Sample Member", "member123", auth.RoleMember)

	_, err = subscriptions.NewRepository(pool).Upsert(ctx, &subscriptions.Subscription{
		UserID: memberID,
		Tier:   access.TierArchitect,
		Status: subscriptions.StatusActive,
	})
	if err != nil {
		log.Fatalf("failed to create subscription: %v", err)
	}
	fmt.Println("Gave member@example.com an active architect subscription")

	repo := prompts.NewRepository(pool)
	for _, s := range samples {
		p, err := repo.Create(ctx, prompts.CreateInput{
			Title:        s.title,
			Category:     s.category,
			Body:         s.body,
			RequiredTier: s.tier,
			CreatedBy:    adminID,
			Message:      "Seed",
		})
		if err != nil {
			log.Fatalf("failed to create prompt %q: %v", s.title, err)
		}
		fmt.Printf("Created prompt: %s (%s)\n", p.Slug, p.RequiredTier)
	}

	fmt.Println("\n=== Seed Complete ===")
	fmt.Println("Login with:")
	fmt.Println("  Email: admin@example.com")
	fmt.Printf("  Password: %s\n", adminPassword)
	fmt.Println("\n⚠️  Change this password in production!")
}

func createUser(ctx context.Context, pool *pgxpool.Pool, email, name, password, role string) uuid.UUID {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx, `
		INSERT INTO users (email, name, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id
	`, email, name, passwordHash, role).Scan(&id)
	if err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	fmt.Printf("Created user: %s (%s, %s)\n", id, email, role)
	return id
}
