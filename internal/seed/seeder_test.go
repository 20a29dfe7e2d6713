package seed

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/material-submission-api/internal/models"
)

type memoryLabels[T any] struct {
	ids   map[string]int64
	build func(id int64) *T
}

func newMemoryLabels[T any](build func(id int64) *T) *memoryLabels[T] {
	return &memoryLabels[T]{ids: map[string]int64{}, build: build}
}

func (m *memoryLabels[T]) FindByLabel(ctx context.Context, label string) (*T, error) {
	id, ok := m.ids[label]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return m.build(id), nil
}

func (m *memoryLabels[T]) Create(ctx context.Context, label string, actor *string) (int64, error) {
	id := int64(len(m.ids) + 1)
	m.ids[label] = id
	return id, nil
}

type memoryUsers struct {
	rows []*models.User
}

func (m *memoryUsers) FindByRegistrationNumber(ctx context.Context, registration string) (*models.User, error) {
	for _, u := range m.rows {
		if u.RegistrationNumber == registration {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryUsers) Create(ctx context.Context, user *models.User) error {
	user.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, user)
	return nil
}

type memorySubmissions struct {
	keys map[models.SubmissionKey]bool
}

func (m *memorySubmissions) ExistsByKey(ctx context.Context, key models.SubmissionKey, excludeID int64) (bool, error) {
	return m.keys[key], nil
}

func (m *memorySubmissions) Create(ctx context.Context, item *models.Submission) error {
	m.keys[item.Key()] = true
	return nil
}

func newTestSeeder() (*Seeder, *memoryUsers, *memorySubmissions) {
	users := &memoryUsers{}
	submissions := &memorySubmissions{keys: map[models.SubmissionKey]bool{}}
	s := New(Stores{
		Profiles:    newMemoryLabels(func(id int64) *models.Profile { return &models.Profile{ID: id} }),
		Stages:      newMemoryLabels(func(id int64) *models.SchoolStage { return &models.SchoolStage{ID: id} }),
		Subjects:    newMemoryLabels(func(id int64) *models.Subject { return &models.Subject{ID: id} }),
		Statuses:    newMemoryLabels(func(id int64) *models.SubmissionStatus { return &models.SubmissionStatus{ID: id} }),
		Users:       users,
		Submissions: submissions,
	}, zap.NewNop(), 42)
	s.cost = bcrypt.MinCost
	s.now = func() time.Time { return time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC) }
	return s, users, submissions
}

func TestSeederRunIsIdempotent(t *testing.T) {
	s, users, submissions := newTestSeeder()
	data := DefaultData()

	first, err := s.Run(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 16, first.Lookups)
	assert.Equal(t, 3, first.Users)
	assert.Positive(t, first.Submissions)
	assert.Len(t, submissions.keys, first.Submissions)

	require.Len(t, users.rows, 3)
	teacher := users.rows[0]
	assert.Equal(t, "João Silva", teacher.Name)
	assert.Equal(t, int64(2), teacher.ProfileID)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(teacher.PasswordHash), []byte("senha123")))

	data.Submissions = 0
	second, err := s.Run(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, *second)
	assert.Len(t, users.rows, 3)
}

func TestSeederRejectsUnknownProfile(t *testing.T) {
	s, _, _ := newTestSeeder()
	data := DefaultData()
	data.Users = []DemoUser{{RegistrationNumber: "9", Name: "X", Profile: "Diretor"}}

	_, err := s.Run(context.Background(), data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Diretor")
}
