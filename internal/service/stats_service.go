package service

import (
	"alcyxob/bmi-tracker/internal/bmi"
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/repository"
	"context"
)

type StatsService interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

type statsService struct {
	userRepo   repository.UserRepository
	recordRepo repository.BMIRecordRepository
}

func NewStatsService(userRepo repository.UserRepository, recordRepo repository.BMIRecordRepository) StatsService {
	return &statsService{userRepo: userRepo, recordRepo: recordRepo}
}

// Stats aggregates user and record counts. AverageBMI is rounded to one
// decimal and is 0 without records.
func (s *statsService) Stats(ctx context.Context) (*domain.Stats, error) {
	totalUsers, err := s.userRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalRecords, err := s.recordRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	activeUsers, err := s.recordRepo.CountUsersWithRecords(ctx)
	if err != nil {
		return nil, err
	}
	avg, ok, err := s.recordRepo.AverageBMI(ctx)
	if err != nil {
		return nil, err
	}

	stats := &domain.Stats{
		TotalUsers:      totalUsers,
		ActiveUsers:     activeUsers,
		TotalBMIRecords: totalRecords,
	}
	if ok {
		stats.AverageBMI = bmi.Round(avg, 1)
	}
	return stats, nil
}
