// Command promote-admin grants or revokes the admin role for an existing
// account. The role column is the only input to the admin gate.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kjarir/swordrobe-edge-shop/internal/apperror"
	"github.com/kjarir/swordrobe-edge-shop/internal/config"
	"github.com/kjarir/swordrobe-edge-shop/internal/database"
	"github.com/kjarir/swordrobe-edge-shop/internal/domain"
	"github.com/kjarir/swordrobe-edge-shop/internal/logger"
	"github.com/kjarir/swordrobe-edge-shop/internal/repository"
	"github.com/kjarir/swordrobe-edge-shop/internal/service"
)

func main() {
	var (
		emailFlag  = flag.String("email", "", "Email of the account to update (case-insensitive)")
		revokeFlag = flag.Bool("revoke", false, "Demote the account back to a regular user")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -email <address> [-revoke]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *emailFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	cfg := config.Load()
	zlog := logger.NewWithDefaults()
	defer zlog.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.Database, zlog, 10*time.Second)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	users := service.NewUserService(
		repository.NewUserRepository(db.DB()),
		repository.NewRefreshTokenRepository(db.DB()),
		cfg.JWT.Secret,
		service.TokenTTL{},
	)

	role := domain.RoleAdmin
	if *revokeFlag {
		role = domain.RoleUser
	}

	user, err := users.SetRole(ctx, *emailFlag, role)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "No account found for %s\n", *emailFlag)
			os.Exit(1)
		}
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Failed to update role: %v\n", err)
		os.Exit(1)
	}

	color.New(color.FgGreen).Printf("%s is now %s\n", user.Email, user.Role)
	fmt.Println("Existing sessions pick up the change on their next token refresh.")
}
