package document

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/icmpp/concursuri/internal/database"
	"github.com/icmpp/concursuri/internal/models"
	"github.com/icmpp/concursuri/internal/pkg/cache"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB, *models.CompetitionModel) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	comp := models.CompetitionModel{Title: "Concurs", Slug: "concurs", Status: models.StatusActive}
	if err := db.Create(&comp).Error; err != nil {
		t.Fatalf("seed competition: %v", err)
	}
	return NewService(db, cache.New(nil)), db, &comp
}

func TestCreateAppendsOrderIndex(t *testing.T) {
	svc, _, comp := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, comp.ID, &UploadDocumentForm{Title: "Anunț"}, comp.ID+"/a.pdf", "a.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, comp.ID, &UploadDocumentForm{Title: "Calendar"}, comp.ID+"/b.pdf", "b.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if first.OrderIndex != 0 || second.OrderIndex != 1 {
		t.Fatalf("order indexes = %d, %d, want 0, 1", first.OrderIndex, second.OrderIndex)
	}

	if _, err := svc.Create(ctx, "00000000-0000-0000-0000-000000000000", &UploadDocumentForm{Title: "X"}, "k", "x.pdf", "application/pdf"); !errors.Is(err, ErrCompetitionNotFound) {
		t.Fatalf("create for missing competition err = %v", err)
	}
}

func TestListOrderedByIndex(t *testing.T) {
	svc, db, comp := newTestService(t)
	ctx := context.Background()

	seed := []models.CompetitionDocumentModel{
		{CompetitionID: comp.ID, Title: "C", FilePath: "c", FileName: "c.pdf", OrderIndex: 2},
		{CompetitionID: comp.ID, Title: "A", FilePath: "a", FileName: "a.pdf", OrderIndex: 0},
		{CompetitionID: comp.ID, Title: "B", FilePath: "b", FileName: "b.pdf", OrderIndex: 1},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	docs, err := svc.ListByCompetition(ctx, comp.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("len = %d", len(docs))
	}
	for i, want := range []string{"A", "B", "C"} {
		if docs[i].Title != want {
			t.Fatalf("docs[%d] = %q, want %q", i, docs[i].Title, want)
		}
	}
}

func TestReorderAppliesPermutation(t *testing.T) {
	svc, _, comp := newTestService(t)
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"A", "B", "C"} {
		doc, err := svc.Create(ctx, comp.ID, &UploadDocumentForm{Title: title}, "k-"+title, title+".pdf", "application/pdf")
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		ids = append(ids, doc.ID)
	}

	// Reverse the display order.
	err := svc.Reorder(ctx, comp.ID, []ReorderItem{
		{ID: ids[0], OrderIndex: 2},
		{ID: ids[1], OrderIndex: 1},
		{ID: ids[2], OrderIndex: 0},
	})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}

	docs, err := svc.ListByCompetition(ctx, comp.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i, want := range []string{"C", "B", "A"} {
		if docs[i].Title != want {
			t.Fatalf("docs[%d] = %q, want %q", i, docs[i].Title, want)
		}
	}
}

func TestReorderRejectsForeignDocument(t *testing.T) {
	svc, db, comp := newTestService(t)
	ctx := context.Background()

	other := models.CompetitionModel{Title: "Alt concurs", Slug: "alt-concurs", Status: models.StatusActive}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("seed competition: %v", err)
	}

	mine, err := svc.Create(ctx, comp.ID, &UploadDocumentForm{Title: "Al meu"}, "k1", "a.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	foreign, err := svc.Create(ctx, other.ID, &UploadDocumentForm{Title: "Străin"}, "k2", "b.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = svc.Reorder(ctx, comp.ID, []ReorderItem{
		{ID: mine.ID, OrderIndex: 5},
		{ID: foreign.ID, OrderIndex: 6},
	})
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("reorder err = %v, want ErrDocumentNotFound", err)
	}

	// The batch rolled back: the valid pair kept its old index too.
	var reloaded models.CompetitionDocumentModel
	if err := db.First(&reloaded, "id = ?", mine.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.OrderIndex != 0 {
		t.Fatalf("order index = %d after failed reorder, want 0", reloaded.OrderIndex)
	}
}

func TestUpdateMetadataAndFileReplacement(t *testing.T) {
	svc, _, comp := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, comp.ID, &UploadDocumentForm{Title: "Vechi"}, "old-key", "old.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Nou"
	updated, oldKey, err := svc.Update(ctx, doc.ID, &UpdateDocumentForm{Title: &title}, "", "", "")
	if err != nil {
		t.Fatalf("update metadata: %v", err)
	}
	if oldKey != "" {
		t.Fatalf("oldKey = %q for metadata-only update", oldKey)
	}
	if updated.Title != "Nou" || updated.FilePath != "old-key" {
		t.Fatalf("updated = %+v", updated)
	}

	updated, oldKey, err = svc.Update(ctx, doc.ID, &UpdateDocumentForm{}, "new-key", "new.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("update file: %v", err)
	}
	if oldKey != "old-key" {
		t.Fatalf("oldKey = %q, want old-key", oldKey)
	}
	if updated.FilePath != "new-key" || updated.FileName != "new.pdf" {
		t.Fatalf("updated = %+v", updated)
	}

	if _, _, err := svc.Update(ctx, "lipseste", &UpdateDocumentForm{Title: &title}, "", "", ""); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("update missing err = %v", err)
	}
}

func TestDeleteReturnsRow(t *testing.T) {
	svc, db, comp := newTestService(t)
	ctx := context.Background()

	doc, err := svc.Create(ctx, comp.ID, &UploadDocumentForm{Title: "De șters"}, "del-key", "d.pdf", "application/pdf")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	gone, err := svc.Delete(ctx, doc.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gone.FilePath != "del-key" {
		t.Fatalf("deleted doc = %+v", gone)
	}

	var count int64
	if err := db.Model(&models.CompetitionDocumentModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("%d rows left", count)
	}

	if _, err := svc.Delete(ctx, doc.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}
