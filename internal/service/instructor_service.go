package service

import (
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/repository"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RecentRecordsPerUser bounds the records returned per user on the dashboard.
const RecentRecordsPerUser = 10

// InstructorService backs the instructor dashboard.
type InstructorService interface {
	AllUsersWithRecords(ctx context.Context) ([]domain.UserWithRecords, error)
	UserHistory(ctx context.Context, userID primitive.ObjectID) (*domain.UserWithRecords, error)
}

type instructorService struct {
	userRepo   repository.UserRepository
	recordRepo repository.BMIRecordRepository
}

func NewInstructorService(userRepo repository.UserRepository, recordRepo repository.BMIRecordRepository) InstructorService {
	return &instructorService{userRepo: userRepo, recordRepo: recordRepo}
}

// AllUsersWithRecords lists every user with their latest records.
func (s *instructorService) AllUsersWithRecords(ctx context.Context) ([]domain.UserWithRecords, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserWithRecords, 0, len(users))
	for _, u := range users {
		records, err := s.recordRepo.GetByUserID(ctx, u.ID, RecentRecordsPerUser)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = ""
		out = append(out, domain.UserWithRecords{User: u, BMIRecords: records})
	}
	return out, nil
}

// UserHistory returns one user with their full history.
func (s *instructorService) UserHistory(ctx context.Context, userID primitive.ObjectID) (*domain.UserWithRecords, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	records, err := s.recordRepo.GetByUserID(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return &domain.UserWithRecords{User: *user, BMIRecords: records}, nil
}
