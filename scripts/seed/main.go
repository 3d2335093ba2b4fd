// Command seed provisions the first barangay and its accounts so a fresh
// deployment can be logged into. Safe to re-run: existing emails are skipped.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/brgy-docs-api/internal/models"
	"github.com/noah-isme/brgy-docs-api/internal/repository"
	"github.com/noah-isme/brgy-docs-api/pkg/config"
	"github.com/noah-isme/brgy-docs-api/pkg/database"
)

func main() {
	var (
		superEmail    string
		superPassword string
		name          string
		address       string
		municipality  string
		province      string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&superEmail, "super-email", "superadmin@example.com", "super admin login email")
	flag.StringVar(&superPassword, "super-password", "", "super admin password (required)")
	flag.StringVar(&name, "barangay", "Barangay San Isidro", "barangay name")
	flag.StringVar(&address, "address", "Barangay Hall, Main Road", "barangay hall address")
	flag.StringVar(&municipality, "municipality", "Quezon City", "municipality")
	flag.StringVar(&province, "province", "Metro Manila", "province")
	flag.StringVar(&adminEmail, "admin-email", "", "optional tenant admin login email")
	flag.StringVar(&adminPassword, "admin-password", "", "tenant admin password")
	flag.Parse()

	if superPassword == "" {
		log.Fatal("-super-password is required")
	}
	if adminEmail != "" && adminPassword == "" {
		log.Fatal("-admin-password is required when -admin-email is set")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := repository.NewUserRepository(db)
	barangays := repository.NewBarangayRepository(db)

	barangay := &models.Barangay{
		Name:         name,
		Address:      address,
		Municipality: municipality,
		Province:     province,
		Active:       true,
	}
	if err := barangays.Create(ctx, barangay); err != nil {
		log.Fatalf("failed to create barangay: %v", err)
	}
	fmt.Printf("barangay %q created (id %s)\n", barangay.Name, barangay.ID)

	if err := seedUser(ctx, users, superEmail, superPassword, "Super Admin", models.RoleSuperAdmin, ""); err != nil {
		log.Fatalf("failed to seed super admin: %v", err)
	}
	if adminEmail != "" {
		if err := seedUser(ctx, users, adminEmail, adminPassword, "Barangay Admin", models.RoleAdmin, barangay.ID); err != nil {
			log.Fatalf("failed to seed admin: %v", err)
		}
	}
}

func seedUser(ctx context.Context, users *repository.UserRepository, email, password, fullName string, role models.UserRole, barangayID string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := users.FindByEmail(ctx, email); err == nil {
		fmt.Printf("user %s already exists, skipping\n", email)
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Role:         role,
		BarangayID:   barangayID,
		Active:       true,
	}
	if err := users.CreateUser(ctx, user); err != nil {
		return err
	}
	fmt.Printf("user %s created with role %s\n", email, role)
	return nil
}
