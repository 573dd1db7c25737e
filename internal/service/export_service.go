package service

import (
	"alcyxob/bmi-tracker/internal/domain"
	"alcyxob/bmi-tracker/internal/repository"
	"alcyxob/bmi-tracker/internal/storage"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const csvContentType = "text/csv"

var csvHeader = []string{"createdAt", "weightKg", "heightCm", "bmi", "category"}

// HistoryExport points at an uploaded CSV snapshot.
type HistoryExport struct {
	URL       string    `json:"url"`
	ObjectKey string    `json:"objectKey"`
	ExpiresAt time.Time `json:"expiresAt"`
	Records   int       `json:"records"`
}

type ExportService interface {
	ExportHistory(ctx context.Context, userID primitive.ObjectID) (*HistoryExport, error)
}

type exportService struct {
	recordRepo repository.BMIRecordRepository
	storage    storage.FileStorage
	urlExpiry  time.Duration
	now        func() time.Time
}

func NewExportService(recordRepo repository.BMIRecordRepository, fileStorage storage.FileStorage, urlExpiry time.Duration) ExportService {
	if urlExpiry <= 0 {
		urlExpiry = storage.DefaultPresignedURLExpiry
	}
	return &exportService{
		recordRepo: recordRepo,
		storage:    fileStorage,
		urlExpiry:  urlExpiry,
		now:        time.Now,
	}
}

// ExportHistory renders the user's history as CSV, uploads it and returns a
// presigned download URL.
func (s *exportService) ExportHistory(ctx context.Context, userID primitive.ObjectID) (*HistoryExport, error) {
	if userID.IsZero() {
		return nil, ErrUnauthorized
	}

	records, err := s.recordRepo.GetByUserID(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	body, err := renderCSV(records)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("exports/%s/%s.csv", userID.Hex(), uuid.NewString())
	if err = s.storage.PutObject(ctx, key, csvContentType, bytes.NewReader(body), int64(len(body))); err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return nil, ErrStorageNotConfigured
		}
		return nil, err
	}

	url, err := s.storage.GeneratePresignedDownloadURL(ctx, key, s.urlExpiry)
	if err != nil {
		return nil, err
	}

	slog.Info("history exported", "user_id", userID.Hex(), "key", key, "records", len(records))
	return &HistoryExport{
		URL:       url,
		ObjectKey: key,
		ExpiresAt: s.now().Add(s.urlExpiry).UTC(),
		Records:   len(records),
	}, nil
}

func renderCSV(records []domain.BMIRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.CreatedAt.UTC().Format(time.RFC3339),
			strconv.FormatFloat(r.WeightKg, 'f', -1, 64),
			strconv.FormatFloat(r.HeightCm, 'f', -1, 64),
			strconv.FormatFloat(r.BMI, 'f', 2, 64),
			string(r.Category),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
