package ping

import (
	"context"
	"errors"
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
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.next++
	return fmt.Sprintf("ping-%d", p.next), nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:ping-%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Ping{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Unix(1700000000, 0) },
		IDProvider: &sequenceIDProvider{},
	})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service
}

func mustCreatePing(t *testing.T, service *Service, question string) Ping {
	t.Helper()
	record, err := service.Create(context.Background(), studentPrincipal, Draft{
		College:  "MIT",
		Question: question,
	})
	if err != nil {
		t.Fatalf("failed to create ping: %v", err)
	}
	return record
}

func TestCreatePingValidation(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	if _, err := service.Create(ctx, consultantPrincipal, Draft{College: "MIT", Question: "q"}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for consultant, got %v", err)
	}
	if _, err := service.Create(ctx, studentPrincipal, Draft{Question: "q"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing college, got %v", err)
	}
	if _, err := service.Create(ctx, studentPrincipal, Draft{College: "MIT", Question: "  "}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank question, got %v", err)
	}

	record := mustCreatePing(t, service, "How do I frame my essay?")
	if record.Status != StatusOpen.String() {
		t.Fatalf("new ping must start open, got %q", record.Status)
	}
	if record.ConsultantID != "" {
		t.Fatalf("new ping must start unclaimed")
	}
}

func TestAnswerClaimsThread(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreatePing(t, service, "How do I frame my essay?")

	if _, err := service.Answer(ctx, studentPrincipal, record.PingID, "like this"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for student answer, got %v", err)
	}
	if _, err := service.Answer(ctx, consultantPrincipal, record.PingID, " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank answer, got %v", err)
	}

	answered, err := service.Answer(ctx, consultantPrincipal, record.PingID, "Lead with the anecdote.")
	if err != nil {
		t.Fatalf("unexpected answer error: %v", err)
	}
	if answered.Status != StatusAnswered.String() || answered.ConsultantID != consultantPrincipal.UserID {
		t.Fatalf("unexpected answered state: %#v", answered)
	}

	other := auth.Principal{UserID: "consultant-2", Role: auth.RoleConsultant}
	if _, err := service.Answer(ctx, other, record.PingID, "mine now"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("claimed thread must reject other consultants, got %v", err)
	}

	// The claiming consultant may revise their answer.
	revised, err := service.Answer(ctx, consultantPrincipal, record.PingID, "Lead with the conclusion.")
	if err != nil {
		t.Fatalf("unexpected revise error: %v", err)
	}
	if revised.Answer != "Lead with the conclusion." {
		t.Fatalf("unexpected revised answer: %q", revised.Answer)
	}
}

func TestAnswerUnknownPing(t *testing.T) {
	service := newTestService(t)
	if _, err := service.Answer(context.Background(), consultantPrincipal, "missing", "answer"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCloseIsIdempotentAndParticipantOnly(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreatePing(t, service, "Which college first?")

	outsider := auth.Principal{UserID: "student-2", Role: auth.RoleStudent}
	if _, err := service.Close(ctx, outsider, record.PingID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for non-participant, got %v", err)
	}

	closed, err := service.Close(ctx, studentPrincipal, record.PingID)
	if err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if closed.Status != StatusClosed.String() {
		t.Fatalf("unexpected status: %q", closed.Status)
	}

	again, err := service.Close(ctx, studentPrincipal, record.PingID)
	if err != nil {
		t.Fatalf("second close must be a no-op, got %v", err)
	}
	if again.Status != StatusClosed.String() {
		t.Fatalf("unexpected status after second close: %q", again.Status)
	}

	if _, err := service.Answer(ctx, consultantPrincipal, record.PingID, "too late"); !errors.Is(err, ErrClosed) {
		t.Fatalf("closed thread must refuse answers, got %v", err)
	}
}

func TestListByParticipant(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	first := mustCreatePing(t, service, "first question")
	mustCreatePing(t, service, "second question")

	otherStudent := auth.Principal{UserID: "student-2", Role: auth.RoleStudent}
	if _, err := service.Create(ctx, otherStudent, Draft{College: "Stanford", Question: "third question"}); err != nil {
		t.Fatalf("failed to create ping: %v", err)
	}

	own, err := service.List(ctx, studentPrincipal)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(own) != 2 {
		t.Fatalf("student must see only their pings, got %d", len(own))
	}

	openToConsultant, err := service.List(ctx, consultantPrincipal)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(openToConsultant) != 3 {
		t.Fatalf("consultant must see every open ping, got %d", len(openToConsultant))
	}

	if _, err := service.Answer(ctx, consultantPrincipal, first.PingID, "answered"); err != nil {
		t.Fatalf("unexpected answer error: %v", err)
	}
	afterAnswer, err := service.List(ctx, consultantPrincipal)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(afterAnswer) != 3 {
		t.Fatalf("consultant must keep seeing answered threads they claimed, got %d", len(afterAnswer))
	}

	otherConsultant := auth.Principal{UserID: "consultant-2", Role: auth.RoleConsultant}
	forOther, err := service.List(ctx, otherConsultant)
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(forOther) != 2 {
		t.Fatalf("other consultants must see only open threads, got %d", len(forOther))
	}
}
