package essay

import (
	"context"
	"errors"
	"testing"
)

func TestAcceptStrikethroughAppliesDeleteAndReconciles(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDEFGHIJ")

	comment, err := service.CreateComment(ctx, consultantPrincipal, record.EssayID, CommentDraft{AnchorStart: 7, AnchorEnd: 9, Body: "tighten this"})
	if err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}
	strike, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 2, 4)
	if err != nil {
		t.Fatalf("failed to create strikethrough: %v", err)
	}
	if strike.RemovedText != "CD" {
		t.Fatalf("unexpected removed text snapshot: %q", strike.RemovedText)
	}

	updated, err := service.AcceptStrikethrough(ctx, studentPrincipal, record.EssayID, strike.StrikethroughID, record.Version)
	if err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	if updated.Response != "ABEFGHIJ" {
		t.Fatalf("unexpected response: %q", updated.Response)
	}
	if updated.Version != record.Version+1 {
		t.Fatalf("expected single version bump, got %d", updated.Version)
	}

	comments, err := service.ListComments(ctx, record.EssayID)
	if err != nil {
		t.Fatalf("failed to list comments: %v", err)
	}
	if len(comments) != 1 {
		t.Fatalf("expected one comment, got %d", len(comments))
	}
	if comments[0].AnchorStart != 5 || comments[0].AnchorEnd != 7 {
		t.Fatalf("unexpected reconciled anchors: [%d, %d)", comments[0].AnchorStart, comments[0].AnchorEnd)
	}
	if comments[0].CommentID != comment.CommentID || comments[0].Resolved {
		t.Fatalf("disjoint comment must stay open")
	}

	strikes, err := service.ListStrikethroughs(ctx, record.EssayID)
	if err != nil {
		t.Fatalf("failed to list strikethroughs: %v", err)
	}
	if len(strikes) != 0 {
		t.Fatalf("accepted strikethrough must be deleted, found %d", len(strikes))
	}
}

func TestAcceptStrikethroughResolvesEngulfedCommentAndDropsSiblings(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDEFGHIJKLMN")

	if _, err := service.CreateComment(ctx, consultantPrincipal, record.EssayID, CommentDraft{AnchorStart: 5, AnchorEnd: 10, Body: "unclear"}); err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}
	sibling, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 6, 9)
	if err != nil {
		t.Fatalf("failed to create sibling strikethrough: %v", err)
	}
	engulfing, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 0, 12)
	if err != nil {
		t.Fatalf("failed to create engulfing strikethrough: %v", err)
	}

	updated, err := service.AcceptStrikethrough(ctx, studentPrincipal, record.EssayID, engulfing.StrikethroughID, record.Version)
	if err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	if updated.Response != "MN" {
		t.Fatalf("unexpected response: %q", updated.Response)
	}

	comments, _ := service.ListComments(ctx, record.EssayID)
	if len(comments) != 1 || !comments[0].Resolved {
		t.Fatalf("expected engulfed comment to resolve, got %#v", comments)
	}
	if comments[0].AnchorStart != 0 || comments[0].AnchorEnd != 0 {
		t.Fatalf("expected anchors clamped to deletion point, got [%d, %d)", comments[0].AnchorStart, comments[0].AnchorEnd)
	}

	strikes, _ := service.ListStrikethroughs(ctx, record.EssayID)
	for _, s := range strikes {
		if s.StrikethroughID == sibling.StrikethroughID {
			t.Fatalf("engulfed sibling strikethrough must be discarded")
		}
	}
	if len(strikes) != 0 {
		t.Fatalf("expected no surviving strikethroughs, got %d", len(strikes))
	}
}

func TestAcceptAdditionAppliesInsertAndReconcilesComments(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDE")

	if _, err := service.CreateComment(ctx, consultantPrincipal, record.EssayID, CommentDraft{AnchorStart: 3, AnchorEnd: 5}); err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}
	addition, err := service.CreateAddition(ctx, consultantPrincipal, record.EssayID, 1, "XY")
	if err != nil {
		t.Fatalf("failed to create addition: %v", err)
	}

	updated, err := service.AcceptAddition(ctx, studentPrincipal, record.EssayID, addition.AdditionID, record.Version)
	if err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	if updated.Response != "AXYBCDE" {
		t.Fatalf("unexpected response: %q", updated.Response)
	}

	comments, _ := service.ListComments(ctx, record.EssayID)
	if len(comments) != 1 {
		t.Fatalf("expected one comment, got %d", len(comments))
	}
	if comments[0].AnchorStart != 5 || comments[0].AnchorEnd != 7 {
		t.Fatalf("comments must shift on addition accept, got [%d, %d)", comments[0].AnchorStart, comments[0].AnchorEnd)
	}

	additions, _ := service.ListAdditions(ctx, record.EssayID)
	if len(additions) != 0 {
		t.Fatalf("accepted addition must be deleted")
	}
}

func TestAcceptEnforcesCrossRole(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDEFGHIJ")

	strike, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 2, 4)
	if err != nil {
		t.Fatalf("failed to create strikethrough: %v", err)
	}

	otherConsultant := consultantPrincipal
	otherConsultant.UserID = "consultant-2"
	if _, err := service.AcceptStrikethrough(ctx, otherConsultant, record.EssayID, strike.StrikethroughID, record.Version); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for same-role accept, got %v", err)
	}

	if _, err := service.AcceptStrikethrough(ctx, studentPrincipal, record.EssayID, strike.StrikethroughID, record.Version); err != nil {
		t.Fatalf("cross-role accept must succeed, got %v", err)
	}
}

func TestAcceptRejectsStaleVersion(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDEFGHIJ")

	first, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 2, 4)
	if err != nil {
		t.Fatalf("failed to create strikethrough: %v", err)
	}
	second, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 8, 10)
	if err != nil {
		t.Fatalf("failed to create strikethrough: %v", err)
	}

	if _, err := service.AcceptStrikethrough(ctx, studentPrincipal, record.EssayID, first.StrikethroughID, record.Version); err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}

	// The second caller still holds the pre-edit version.
	if _, err := service.AcceptStrikethrough(ctx, studentPrincipal, record.EssayID, second.StrikethroughID, record.Version); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict for stale version, got %v", err)
	}

	refreshed, err := service.GetEssay(ctx, record.EssayID)
	if err != nil {
		t.Fatalf("failed to refresh essay: %v", err)
	}
	if _, err := service.AcceptStrikethrough(ctx, studentPrincipal, record.EssayID, second.StrikethroughID, refreshed.Version); err != nil {
		t.Fatalf("retry with refreshed version must succeed, got %v", err)
	}
	final, _ := service.GetEssay(ctx, record.EssayID)
	if final.Response != "ABEFGH" {
		t.Fatalf("unexpected final response: %q", final.Response)
	}
}

func TestResolveCommentIsIdempotent(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDEFGHIJ")

	comment, err := service.CreateComment(ctx, studentPrincipal, record.EssayID, CommentDraft{AnchorStart: 0, AnchorEnd: 3, Body: "intro"})
	if err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}

	first, err := service.ResolveComment(ctx, consultantPrincipal, record.EssayID, comment.CommentID)
	if err != nil {
		t.Fatalf("unexpected resolve error: %v", err)
	}
	second, err := service.ResolveComment(ctx, consultantPrincipal, record.EssayID, comment.CommentID)
	if err != nil {
		t.Fatalf("second resolve must be a no-op, got %v", err)
	}
	if !first.Resolved || !second.Resolved {
		t.Fatalf("expected resolved comment")
	}
	if first.AnchorStart != second.AnchorStart || first.AnchorEnd != second.AnchorEnd {
		t.Fatalf("idempotent resolve changed anchors")
	}
}

func TestCreateCommentValidatesAnchors(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDE")

	tests := []struct {
		name       string
		start, end int
	}{
		{name: "negative-start", start: -1, end: 2},
		{name: "start-after-end", start: 3, end: 2},
		{name: "end-beyond-length", start: 0, end: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateComment(ctx, studentPrincipal, record.EssayID, CommentDraft{AnchorStart: tt.start, AnchorEnd: tt.end})
			if !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected invalid range, got %v", err)
			}
		})
	}

	// A highlight-only comment with an empty body is valid.
	if _, err := service.CreateComment(ctx, studentPrincipal, record.EssayID, CommentDraft{AnchorStart: 1, AnchorEnd: 1}); err != nil {
		t.Fatalf("zero-length highlight comment must be accepted, got %v", err)
	}
}

func TestCreateStrikethroughRequiresNonEmptyRange(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDE")

	if _, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 2, 2); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected invalid range for empty strikethrough, got %v", err)
	}
}

func TestRejectProposalLeavesBufferUntouched(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDEFGHIJ")

	strike, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 2, 4)
	if err != nil {
		t.Fatalf("failed to create strikethrough: %v", err)
	}
	// Same-role reject is allowed.
	if err := service.RejectStrikethrough(ctx, consultantPrincipal, record.EssayID, strike.StrikethroughID); err != nil {
		t.Fatalf("unexpected reject error: %v", err)
	}

	refreshed, _ := service.GetEssay(ctx, record.EssayID)
	if refreshed.Response != "ABCDEFGHIJ" || refreshed.Version != record.Version {
		t.Fatalf("reject must not mutate the buffer")
	}
	if err := service.RejectStrikethrough(ctx, consultantPrincipal, record.EssayID, strike.StrikethroughID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for double reject, got %v", err)
	}
}

func TestReplaceResponseBlockedByPendingProposals(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDEFGHIJ")

	if _, err := service.ReplaceResponse(ctx, consultantPrincipal, record.EssayID, "new text"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("consultants must not replace the response, got %v", err)
	}

	strike, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 2, 4)
	if err != nil {
		t.Fatalf("failed to create strikethrough: %v", err)
	}
	if _, err := service.ReplaceResponse(ctx, studentPrincipal, record.EssayID, "new text"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict while proposals are pending, got %v", err)
	}

	if err := service.RejectStrikethrough(ctx, studentPrincipal, record.EssayID, strike.StrikethroughID); err != nil {
		t.Fatalf("unexpected reject error: %v", err)
	}
	comment, err := service.CreateComment(ctx, consultantPrincipal, record.EssayID, CommentDraft{AnchorStart: 0, AnchorEnd: 4, Body: "opening"})
	if err != nil {
		t.Fatalf("failed to create comment: %v", err)
	}

	updated, err := service.ReplaceResponse(ctx, studentPrincipal, record.EssayID, "new text")
	if err != nil {
		t.Fatalf("unexpected replace error: %v", err)
	}
	if updated.Response != "new text" {
		t.Fatalf("unexpected response: %q", updated.Response)
	}
	if updated.Version != record.Version+1 {
		t.Fatalf("expected version bump on replace")
	}

	comments, _ := service.ListComments(ctx, record.EssayID)
	if len(comments) != 1 || comments[0].CommentID != comment.CommentID {
		t.Fatalf("comment history must be retained")
	}
	if !comments[0].Resolved || comments[0].AnchorStart != 0 || comments[0].AnchorEnd != 0 {
		t.Fatalf("open comments must resolve with cleared anchors on replace, got %#v", comments[0])
	}
}

func TestSuggestionLifecycle(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "ABCDE")

	suggestion, err := service.CreateSuggestion(ctx, consultantPrincipal, record.EssayID, SuggestionDraft{
		OriginalText:  "ABCDE",
		SuggestedText: "A better opening",
		Kind:          SuggestionKindStyle,
		Comment:       "stronger hook",
	})
	if err != nil {
		t.Fatalf("failed to create suggestion: %v", err)
	}

	if _, err := service.AcceptSuggestion(ctx, consultantPrincipal, record.EssayID, suggestion.SuggestionID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for same-role accept, got %v", err)
	}

	accepted, err := service.AcceptSuggestion(ctx, studentPrincipal, record.EssayID, suggestion.SuggestionID)
	if err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	if !accepted.Accepted {
		t.Fatalf("expected suggestion marked accepted")
	}

	again, err := service.AcceptSuggestion(ctx, studentPrincipal, record.EssayID, suggestion.SuggestionID)
	if err != nil || !again.Accepted {
		t.Fatalf("second accept must be a no-op, got %v", err)
	}

	refreshed, _ := service.GetEssay(ctx, record.EssayID)
	if refreshed.Response != "ABCDE" || refreshed.Version != record.Version {
		t.Fatalf("suggestion accept must not mutate the buffer")
	}

	if err := service.RejectSuggestion(ctx, studentPrincipal, record.EssayID, suggestion.SuggestionID); err != nil {
		t.Fatalf("unexpected reject error: %v", err)
	}
	suggestions, _ := service.ListSuggestions(ctx, record.EssayID)
	if len(suggestions) != 0 {
		t.Fatalf("rejected suggestion must be deleted")
	}
}

func TestCreateSuggestionRejectsUnknownKind(t *testing.T) {
	service := newTestService(t)
	record := mustCreateEssay(t, service, "ABCDE")

	_, err := service.CreateSuggestion(context.Background(), consultantPrincipal, record.EssayID, SuggestionDraft{
		SuggestedText: "x",
		Kind:          SuggestionKind("tone"),
	})
	if !errors.Is(err, ErrInvalidSuggestionKind) {
		t.Fatalf("expected invalid suggestion kind, got %v", err)
	}
}

func TestGetEssayUnknownID(t *testing.T) {
	service := newTestService(t)
	if _, err := service.GetEssay(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestContentLengthDeltaLaw(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()
	record := mustCreateEssay(t, service, "0123456789")

	strike, err := service.CreateStrikethrough(ctx, consultantPrincipal, record.EssayID, 3, 7)
	if err != nil {
		t.Fatalf("failed to create strikethrough: %v", err)
	}
	afterDelete, err := service.AcceptStrikethrough(ctx, studentPrincipal, record.EssayID, strike.StrikethroughID, record.Version)
	if err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	if got := afterDelete.contentLength(); got != 10-4 {
		t.Fatalf("expected length to shrink by the range length, got %d", got)
	}

	addition, err := service.CreateAddition(ctx, consultantPrincipal, record.EssayID, 2, "xyz")
	if err != nil {
		t.Fatalf("failed to create addition: %v", err)
	}
	afterInsert, err := service.AcceptAddition(ctx, studentPrincipal, record.EssayID, addition.AdditionID, afterDelete.Version)
	if err != nil {
		t.Fatalf("unexpected accept error: %v", err)
	}
	if got := afterInsert.contentLength(); got != 6+3 {
		t.Fatalf("expected length to grow by the insert length, got %d", got)
	}
}
