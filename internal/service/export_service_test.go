package service

import (
	"alcyxob/bmi-tracker/internal/storage"
	"alcyxob/bmi-tracker/internal/testutil"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestExportService_ExportHistory(t *testing.T) {
	records := testutil.NewMockBMIRecordRepository(nil)
	store := testutil.NewMockStorage()
	svc := NewExportService(records, store, 10*time.Minute)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	bmiSvc := NewBMIService(records)
	_, _ = bmiSvc.Submit(ctx, userID, 70, 175)
	_, _ = bmiSvc.Submit(ctx, userID, 50, 180)
	_, _ = bmiSvc.Submit(ctx, primitive.NewObjectID(), 90, 180)

	export, err := svc.ExportHistory(ctx, userID)
	if err != nil {
		t.Fatalf("ExportHistory() error = %v", err)
	}
	if export.Records != 2 {
		t.Errorf("records = %d, want 2", export.Records)
	}
	if !strings.HasPrefix(export.ObjectKey, "exports/"+userID.Hex()+"/") || !strings.HasSuffix(export.ObjectKey, ".csv") {
		t.Errorf("objectKey = %q", export.ObjectKey)
	}
	if !strings.Contains(export.URL, export.ObjectKey) {
		t.Errorf("url = %q", export.URL)
	}
	if time.Until(export.ExpiresAt) <= 0 {
		t.Error("expiresAt should be in the future")
	}
	if store.ContentType[export.ObjectKey] != "text/csv" {
		t.Errorf("content type = %q", store.ContentType[export.ObjectKey])
	}

	rows, err := csv.NewReader(strings.NewReader(string(store.Objects[export.ObjectKey]))).ReadAll()
	if err != nil {
		t.Fatalf("uploaded object is not CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if strings.Join(rows[0], ",") != "createdAt,weightKg,heightCm,bmi,category" {
		t.Errorf("header = %v", rows[0])
	}
	// newest first: the 50/180 submission
	if rows[1][3] != "15.43" || rows[1][4] != "Underweight" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][3] != "22.86" || rows[2][4] != "Normal weight" {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestExportService_Errors(t *testing.T) {
	records := testutil.NewMockBMIRecordRepository(nil)
	ctx := context.Background()

	disabled := NewExportService(records, storage.Disabled(), 0)
	if _, err := disabled.ExportHistory(ctx, primitive.NewObjectID()); !errors.Is(err, ErrStorageNotConfigured) {
		t.Errorf("disabled storage: error = %v, want ErrStorageNotConfigured", err)
	}

	store := testutil.NewMockStorage()
	svc := NewExportService(records, store, 0)
	if _, err := svc.ExportHistory(ctx, primitive.NilObjectID); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("no user: error = %v, want ErrUnauthorized", err)
	}

	store.PutError = errors.New("bucket unavailable")
	if _, err := svc.ExportHistory(ctx, primitive.NewObjectID()); err == nil || errors.Is(err, ErrStorageNotConfigured) {
		t.Errorf("upload failure should surface as an internal error, got %v", err)
	}
}
