package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ringside-labs/docintel/internal/core/domain"
)

func TestDocumentRepositoryUpsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("doc-1", "docs/doc-1.pdf", "inspector-7", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewDocumentRepository(db)
	err = repo.Upsert(context.Background(), &domain.Document{
		ID:         "doc-1",
		StorageKey: "docs/doc-1.pdf",
		UploadedBy: "inspector-7",
		Metadata:   map[string]string{"event": "card-2026-09"},
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDocumentRepositoryGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM documents").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewDocumentRepository(db)
	_, err = repo.GetByID(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected document-not-found, got %v", err)
	}
}
