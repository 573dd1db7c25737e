package service

import (
	"alcyxob/bmi-tracker/internal/bmi"
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/metrics"
	"alcyxob/bmi-tracker/internal/repository"
	"context"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BMIService interface {
	// Submit computes and stores one measurement for userID.
	Submit(ctx context.Context, userID primitive.ObjectID, weightKg, heightCm float64) (*domain.BMIRecord, error)
	// History returns the user's records, newest first.
	History(ctx context.Context, userID primitive.ObjectID) ([]domain.BMIRecord, error)
}

type bmiService struct {
	recordRepo repository.BMIRecordRepository
}

func NewBMIService(recordRepo repository.BMIRecordRepository) BMIService {
	return &bmiService{recordRepo: recordRepo}
}

func (s *bmiService) Submit(ctx context.Context, userID primitive.ObjectID, weightKg, heightCm float64) (*domain.BMIRecord, error) {
	if userID.IsZero() {
		return nil, ErrUnauthorized
	}
	if !positive(weightKg) || !positive(heightCm) {
		return nil, invalid("weightKg and heightCm required")
	}

	value, category := bmi.Calculate(weightKg, heightCm)
	// extreme inputs can overflow the division; such a value must never be stored
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return nil, invalid("weightKg and heightCm out of range")
	}
	record := &domain.BMIRecord{
		UserID:   &userID,
		WeightKg: weightKg,
		HeightCm: heightCm,
		BMI:      value,
		Category: category,
	}
	id, err := s.recordRepo.Create(ctx, record)
	if err != nil {
		return nil, err
	}
	record.ID = id

	metrics.RecordBMISubmission(string(category))
	return record, nil
}

func (s *bmiService) History(ctx context.Context, userID primitive.ObjectID) ([]domain.BMIRecord, error) {
	if userID.IsZero() {
		return nil, ErrUnauthorized
	}
	return s.recordRepo.GetByUserID(ctx, userID, 0)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
