package essay

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AdmitPathLabs/admitpath/backend/internal/auth"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var (
	studentPrincipal    = auth.Principal{UserID: "student-1", Role: auth.RoleStudent}
	consultantPrincipal = auth.Principal{UserID: "consultant-1", Role: auth.RoleConsultant}
)

type sequenceIDProvider struct {
	prefix string
	next   int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("%s-%d", p.prefix, p.next), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:essay-%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Essay{}, &Comment{}, &Strikethrough{}, &Addition{}, &Suggestion{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Unix(1700000000, 0) },
		IDProvider: &sequenceIDProvider{prefix: "id"},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func mustCreateEssay(t *testing.T, service *Service, response string) Essay {
	t.Helper()
	record, err := service.CreateEssay(context.Background(), "application-1", "Why this college?", response)
	if err != nil {
		t.Fatalf("failed to create essay: %v", err)
	}
	return record
}
