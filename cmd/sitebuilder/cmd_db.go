package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/developlogy/sitebuilder/config"
	_ "github.com/developlogy/sitebuilder/database/migrations"
	"github.com/developlogy/sitebuilder/database/seeders"
	"github.com/developlogy/sitebuilder/pkg/database"
	"github.com/developlogy/sitebuilder/pkg/migration"
)

// bootDB loads config and opens the database connection.
func bootDB() error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return database.Connect()
}

// sitebuilder migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		fmt.Println("Running migrations…")
		n, err := migration.New(database.DB).Run()
		if err != nil {
			return err
		}
		fmt.Printf("✅ %d migration(s) ran\n", n)
		return nil
	},
}

// sitebuilder migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		fmt.Println("Rolling back last batch…")
		n, err := migration.New(database.DB).Rollback()
		if err != nil {
			return err
		}
		fmt.Printf("✅ %d migration(s) rolled back\n", n)
		return nil
	},
}

// sitebuilder migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		return migration.New(database.DB).PrintStatus()
	},
}

// sitebuilder seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Run all database seeders",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := bootDB(); err != nil {
			return err
		}
		fmt.Println("Running seeders…")
		return seeders.RunAll(context.Background(), database.DB)
	},
}
