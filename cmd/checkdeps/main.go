package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/you/feedauth/internal/config"
	"github.com/you/feedauth/internal/infrastructure/database"
	"github.com/you/feedauth/internal/infrastructure/repositories"
)

// checkdeps verifies that the configured stores are reachable and migrated
// before the service is deployed.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("Checking %s store\n", cfg.DBDriver)
	if cfg.DBDriver == "mongo" {
		client, err := database.OpenMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.Fatalf("Failed to connect to mongo: %v", err)
		}
		defer client.Disconnect(context.Background())
		fmt.Println("✓ Mongo connection successful")
	} else {
		db, err := database.Open(cfg.DBDriver, cfg.DSN)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatalf("Failed to get underlying sql.DB: %v", err)
		}
		defer sqlDB.Close()

		if err := sqlDB.PingContext(ctx); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		fmt.Println("✓ Database connection successful")

		if err := database.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run auto-migration: %v", err)
		}
		fmt.Println("✓ AutoMigrate completed successfully")

		var accounts, policies int64
		if err := db.Model(&repositories.DBAccount{}).Count(&accounts).Error; err != nil {
			log.Fatalf("Failed to query users table: %v", err)
		}
		if err := db.Table("casbin_rule").Count(&policies).Error; err != nil {
			log.Fatalf("Failed to query casbin_rule table: %v", err)
		}
		fmt.Printf("✓ %d accounts, %d access window rules\n", accounts, policies)
	}

	rc := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer rc.Close()
	if err := rc.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping redis: %v", err)
	}
	fmt.Println("✓ Redis connection successful")
}
