// Package seed loads the canonical lookup rows and a small demo data set.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/material-submission-api/internal/models"
)

const actor = "seed"

type labelStore[T any] interface {
	FindByLabel(ctx context.Context, label string) (*T, error)
	Create(ctx context.Context, label string, actor *string) (int64, error)
}

type userStore interface {
	FindByRegistrationNumber(ctx context.Context, registration string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type submissionStore interface {
	ExistsByKey(ctx context.Context, key models.SubmissionKey, excludeID int64) (bool, error)
	Create(ctx context.Context, item *models.Submission) error
}

// DemoUser is a user created by the seeder when missing.
type DemoUser struct {
	RegistrationNumber string
	NationalID         string
	Name               string
	Phone              string
	Profile            string
}

// Data is the content written by Run.
type Data struct {
	Profiles []string
	Stages   []string
	Subjects []string
	Statuses []string
	Users    []DemoUser
	// Password is assigned to users created by the seeder.
	Password string
	// Submissions is how many random submissions to attempt.
	Submissions int
	Year        int
}

// DefaultData mirrors the rows the legacy deployment shipped with.
func DefaultData() Data {
	return Data{
		Profiles: []string{"Administrador", "Professor", "Coordenador"},
		Stages:   []string{"Educação Infantil", "Ensino Fundamental I", "Ensino Fundamental II", "Ensino Médio"},
		Subjects: []string{"Matemática", "Português", "História", "Geografia", "Biologia"},
		Statuses: []string{"Pendente", "Enviado", "Validado", "Rejeitado"},
		Users: []DemoUser{
			{RegistrationNumber: "2023001", NationalID: "529.982.247-25", Name: "João Silva", Phone: "(11) 91234-5678", Profile: "Professor"},
			{RegistrationNumber: "2023002", NationalID: "111.444.777-35", Name: "Maria Oliveira", Phone: "(11) 99876-5432", Profile: "Coordenador"},
			{RegistrationNumber: "2023003", NationalID: "390.533.447-05", Name: "Carlos Souza", Phone: "(21) 93456-7890", Profile: "Administrador"},
		},
		Password:    "senha123",
		Submissions: 10,
		Year:        2025,
	}
}

// Stores groups the repositories the seeder writes through.
type Stores struct {
	Profiles    labelStore[models.Profile]
	Stages      labelStore[models.SchoolStage]
	Subjects    labelStore[models.Subject]
	Statuses    labelStore[models.SubmissionStatus]
	Users       userStore
	Submissions submissionStore
}

// Summary counts the rows Run inserted.
type Summary struct {
	Lookups     int
	Users       int
	Submissions int
}

// Seeder inserts missing rows; existing rows are left untouched so it can run repeatedly.
type Seeder struct {
	stores Stores
	logger *zap.Logger
	rand   *rand.Rand
	now    func() time.Time
	cost   int
}

// New constructs a Seeder. seed fixes the random submission picks.
func New(stores Stores, logger *zap.Logger, seed int64) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{stores: stores, logger: logger, rand: rand.New(rand.NewSource(seed)), now: time.Now, cost: bcrypt.DefaultCost}
}

// Run writes data.
func (s *Seeder) Run(ctx context.Context, data Data) (*Summary, error) {
	summary := &Summary{}

	profiles, err := ensureLabels(ctx, s.stores.Profiles, data.Profiles, func(p *models.Profile) int64 { return p.ID }, summary)
	if err != nil {
		return nil, fmt.Errorf("seed profiles: %w", err)
	}
	stages, err := ensureLabels(ctx, s.stores.Stages, data.Stages, func(p *models.SchoolStage) int64 { return p.ID }, summary)
	if err != nil {
		return nil, fmt.Errorf("seed stages: %w", err)
	}
	subjects, err := ensureLabels(ctx, s.stores.Subjects, data.Subjects, func(p *models.Subject) int64 { return p.ID }, summary)
	if err != nil {
		return nil, fmt.Errorf("seed subjects: %w", err)
	}
	statuses, err := ensureLabels(ctx, s.stores.Statuses, data.Statuses, func(p *models.SubmissionStatus) int64 { return p.ID }, summary)
	if err != nil {
		return nil, fmt.Errorf("seed statuses: %w", err)
	}
	s.logger.Info("lookup rows ready", zap.Int("inserted", summary.Lookups))

	users := make([]int64, 0, len(data.Users))
	for _, u := range data.Users {
		id, created, err := s.ensureUser(ctx, u, profiles, data.Password)
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.RegistrationNumber, err)
		}
		if created {
			summary.Users++
		}
		users = append(users, id)
	}
	s.logger.Info("demo users ready", zap.Int("inserted", summary.Users))

	if len(stages) == 0 || len(subjects) == 0 || len(statuses) == 0 || len(users) == 0 {
		return summary, nil
	}
	stageIDs, subjectIDs, statusIDs := values(stages), values(subjects), values(statuses)
	today := models.NewDate(s.now())
	notes := "Envio automático de teste"
	for i := 0; i < data.Submissions; i++ {
		item := &models.Submission{
			StageID:              pick(s.rand, stageIDs),
			SubjectID:            pick(s.rand, subjectIDs),
			UserID:               pick(s.rand, users),
			StatusID:             pick(s.rand, statusIDs),
			ReferenceMonth:       s.rand.Intn(12) + 1,
			ReferenceYear:        data.Year,
			ManagementNotes:      &notes,
			SchoolSubmissionDate: &today,
			Audit:                models.Audit{CreatedBy: strPtr(actor), UpdatedBy: strPtr(actor)},
		}
		exists, err := s.stores.Submissions.ExistsByKey(ctx, item.Key(), 0)
		if err != nil {
			return nil, fmt.Errorf("check submission: %w", err)
		}
		if exists {
			continue
		}
		if err := s.stores.Submissions.Create(ctx, item); err != nil {
			return nil, fmt.Errorf("create submission: %w", err)
		}
		summary.Submissions++
	}
	s.logger.Info("demo submissions ready", zap.Int("inserted", summary.Submissions))
	return summary, nil
}

func (s *Seeder) ensureUser(ctx context.Context, u DemoUser, profiles map[string]int64, password string) (int64, bool, error) {
	existing, err := s.stores.Users.FindByRegistrationNumber(ctx, u.RegistrationNumber)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}
	profileID, ok := profiles[u.Profile]
	if !ok {
		return 0, false, fmt.Errorf("profile %q is not seeded", u.Profile)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return 0, false, err
	}
	phone := u.Phone
	user := &models.User{
		ProfileID:          profileID,
		Name:               u.Name,
		RegistrationNumber: u.RegistrationNumber,
		NationalID:         u.NationalID,
		PasswordHash:       string(hash),
		Phone:              &phone,
		Audit:              models.Audit{CreatedBy: strPtr(actor), UpdatedBy: strPtr(actor)},
	}
	if err := s.stores.Users.Create(ctx, user); err != nil {
		return 0, false, err
	}
	return user.ID, true, nil
}

// ensureLabels returns label -> id for every label, creating the missing ones.
func ensureLabels[T any](ctx context.Context, store labelStore[T], labels []string, idOf func(*T) int64, summary *Summary) (map[string]int64, error) {
	ids := make(map[string]int64, len(labels))
	for _, label := range labels {
		row, err := store.FindByLabel(ctx, label)
		switch {
		case err == nil:
			ids[label] = idOf(row)
		case errors.Is(err, sql.ErrNoRows):
			id, err := store.Create(ctx, label, strPtr(actor))
			if err != nil {
				return nil, err
			}
			ids[label] = id
			summary.Lookups++
		default:
			return nil, err
		}
	}
	return ids, nil
}

func pick(r *rand.Rand, ids []int64) int64 {
	return ids[r.Intn(len(ids))]
}

// values returns the ids of m in ascending order so picks are reproducible.
func values(m map[string]int64) []int64 {
	ids := make([]int64, 0, len(m))
	for _, id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func strPtr(s string) *string {
	return &s
}
