package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/material-submission-api/internal/repository"
	"github.com/noah-isme/material-submission-api/internal/seed"
	"github.com/noah-isme/material-submission-api/migrations"
	"github.com/noah-isme/material-submission-api/pkg/config"
	"github.com/noah-isme/material-submission-api/pkg/database"
	"github.com/noah-isme/material-submission-api/pkg/logger"
)

func main() {
	var (
		migrate     bool
		submissions int
		year        int
		randomSeed  int64
	)
	flag.BoolVar(&migrate, "migrate", true, "Apply the schema before seeding")
	flag.IntVar(&submissions, "submissions", 10, "Number of random demo submissions to attempt")
	flag.IntVar(&year, "year", time.Now().Year(), "Reference year of demo submissions")
	flag.Int64Var(&randomSeed, "seed", time.Now().UnixNano(), "Random seed for demo submissions")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if migrate {
		if err := migrations.Apply(ctx, db, logr); err != nil {
			logr.Fatal("migration failed", zap.Error(err))
		}
	}

	data := seed.DefaultData()
	data.Submissions = submissions
	data.Year = year

	seeder := seed.New(seed.Stores{
		Profiles:    repository.NewProfileRepository(db),
		Stages:      repository.NewSchoolStageRepository(db),
		Subjects:    repository.NewSubjectRepository(db),
		Statuses:    repository.NewSubmissionStatusRepository(db),
		Users:       repository.NewUserRepository(db),
		Submissions: repository.NewSubmissionRepository(db),
	}, logr, randomSeed)

	summary, err := seeder.Run(ctx, data)
	if err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
	logr.Info("seed finished",
		zap.Int("lookups", summary.Lookups),
		zap.Int("users", summary.Users),
		zap.Int("submissions", summary.Submissions))
}
