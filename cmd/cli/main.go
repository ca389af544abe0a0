package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/migrations"

	"go.uber.org/zap"
)

const usage = "expected 'seed' or 'add-admin' subcommand"

func main() {
	addAdminCmd := flag.NewFlagSet("add-admin", flag.ExitOnError)
	name := addAdminCmd.String("name", "Admin", "Display name for the admin")
	email := addAdminCmd.String("email", "", "Email for the admin account")
	password := addAdminCmd.String("password", "", "Password for the admin account")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	switch os.Args[1] {
	case "seed":
		run(cfg, log, func(ctx context.Context, deps cliDeps) error {
			return seed(ctx, deps.products, deps.admin, deps.discounts, log)
		})
	case "add-admin":
		addAdminCmd.Parse(os.Args[2:])
		if *email == "" || *password == "" {
			fmt.Println("email and password are required")
			addAdminCmd.PrintDefaults()
			os.Exit(1)
		}
		run(cfg, log, func(ctx context.Context, deps cliDeps) error {
			user, err := deps.users.EnsureAdmin(ctx, *name, *email, *password)
			if err != nil {
				return err
			}
			fmt.Printf("Admin '%s' ready.\n", user.Email)
			return nil
		})
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

type cliDeps struct {
	products  repository.ProductRepository
	users     service.UserService
	admin     service.AdminService
	discounts service.DiscountService
}

func run(cfg *config.Config, log *zap.Logger, fn func(ctx context.Context, deps cliDeps) error) {
	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer dbService.Close()

	// Ensure the schema exists if running the cli before the server
	if err := database.RunMigrations(dbService.DB(), migrations.FS, log); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}

	db := dbService.DB()
	productRepo := repository.NewProductRepository(db)
	userRepo := repository.NewUserRepository(db)
	deps := cliDeps{
		products:  productRepo,
		users:     service.NewUserService(userRepo, cfg.JWT.Secret, time.Duration(cfg.JWT.AccessExpiry)*time.Minute, log),
		admin:     service.NewAdminService(productRepo, repository.NewOrderRepository(db), userRepo, nil, database.NewTransactor(db), log),
		discounts: service.NewDiscountService(repository.NewDiscountRepository(db), log),
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := fn(ctx, deps); err != nil {
		log.Fatal("Command failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}
