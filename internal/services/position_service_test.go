package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "investorportal/internal/errors"
	"investorportal/internal/models"
	"investorportal/internal/pagination"
	"investorportal/internal/testutil"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPositionService(t *testing.T) (*positionService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewPositionService(db, NewAuditService(db)).(*positionService)
	svc.now = func() time.Time { return fixedNow }
	return svc, db
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func datePtr(s string) *models.Date {
	d := models.MustParseDate(s)
	return &d
}

func strPtr(s string) *string { return &s }

func statusPtr(s models.PositionStatus) *models.PositionStatus { return &s }

func validInput() CreatePositionInput {
	return CreatePositionInput{
		Title:      "NVIDIA",
		Ticker:     strPtr("NVDA"),
		EntryDate:  datePtr("2024-01-01"),
		EntryPrice: dec("400"),
		Quantity:   dec("10"),
		Tags:       []string{"semis", "ai", "semis", " "},
	}
}

func auditEntries(t *testing.T, db *gorm.DB, positionID string) []models.AuditLog {
	t.Helper()
	var entries []models.AuditLog
	if err := db.Where("position_id = ?", positionID).Order("timestamp ASC, id ASC").Find(&entries).Error; err != nil {
		t.Fatalf("load audit entries: %v", err)
	}
	return entries
}

func outboxCount(t *testing.T, db *gorm.DB, positionID string) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", positionID).Count(&n).Error; err != nil {
		t.Fatalf("count outbox events: %v", err)
	}
	return n
}

func TestCreatePosition(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		admin := testutil.CreateTestAdmin(t, db)

		p, err := svc.Create(ctx, validInput(), admin.ID)
		testutil.AssertNoError(t, err)

		if p.ID == "" {
			t.Fatal("expected an id")
		}
		if p.Status != models.StatusDraft {
			t.Errorf("expected Draft, got %s", p.Status)
		}
		if p.Visibility != models.VisibilityAdminOnly {
			t.Errorf("expected admin_only, got %s", p.Visibility)
		}
		testutil.AssertDecimal(t, p.CostBasis, "4000")
		if p.OpenedDate != nil {
			t.Errorf("draft position should not be opened, got %s", p.OpenedDate)
		}
		if p.Version != 1 {
			t.Errorf("expected version 1, got %d", p.Version)
		}
		if p.CreatedBy == nil || *p.CreatedBy != admin.ID || p.UpdatedBy == nil || *p.UpdatedBy != admin.ID {
			t.Error("expected created_by and updated_by to be stamped")
		}
		if len(p.Tags) != 2 || p.Tags[0] != "semis" || p.Tags[1] != "ai" {
			t.Errorf("expected deduplicated tags, got %v", p.Tags)
		}

		entries := auditEntries(t, db, p.ID)
		if len(entries) != 1 {
			t.Fatalf("expected 1 audit entry, got %d", len(entries))
		}
		e := entries[0]
		if e.Action != models.AuditCreate || e.DiffSummary != "Initial position created" {
			t.Errorf("unexpected audit entry %+v", e)
		}
		if e.Notes == nil || *e.Notes != "Position opened: NVIDIA" {
			t.Errorf("unexpected audit notes %v", e.Notes)
		}
		if e.UserID == nil || *e.UserID != admin.ID {
			t.Error("expected audit entry to carry the actor")
		}
		if n := outboxCount(t, db, p.ID); n != 1 {
			t.Errorf("expected 1 outbox event, got %d", n)
		}
	})

	t.Run("live_sets_opened_date", func(t *testing.T) {
		svc, _ := newTestPositionService(t)
		in := validInput()
		in.Status = models.StatusLive
		in.MarketPrice = decimal.NewNullDecimal(dec("410"))

		p, err := svc.Create(ctx, in, "")
		testutil.AssertNoError(t, err)

		if p.OpenedDate == nil || p.OpenedDate.String() != "2024-01-01" {
			t.Errorf("expected opened_date 2024-01-01, got %v", p.OpenedDate)
		}
		if p.PriceUpdatedAt == nil || !p.PriceUpdatedAt.Equal(fixedNow) {
			t.Errorf("expected price_updated_at to be stamped, got %v", p.PriceUpdatedAt)
		}
	})

	t.Run("validation", func(t *testing.T) {
		svc, db := newTestPositionService(t)

		cases := map[string]func(*CreatePositionInput){
			"empty title":       func(in *CreatePositionInput) { in.Title = "  " },
			"missing date":      func(in *CreatePositionInput) { in.EntryDate = nil },
			"zero price":        func(in *CreatePositionInput) { in.EntryPrice = decimal.Zero },
			"negative quantity": func(in *CreatePositionInput) { in.Quantity = dec("-1") },
			"zero target":       func(in *CreatePositionInput) { in.TargetPrice = decimal.NewNullDecimal(decimal.Zero) },
		}
		for name, mutate := range cases {
			t.Run(name, func(t *testing.T) {
				in := validInput()
				mutate(&in)
				_, err := svc.Create(ctx, in, "")
				testutil.AssertAppError(t, err, "VALIDATION_ERROR")
			})
		}

		if n := testutil.CountRows(t, db, &models.Position{}); n != 0 {
			t.Errorf("expected nothing persisted, got %d rows", n)
		}
	})

	t.Run("invalid_status", func(t *testing.T) {
		svc, _ := newTestPositionService(t)

		in := validInput()
		in.Status = "Pending"
		_, err := svc.Create(ctx, in, "")
		testutil.AssertAppError(t, err, "INVALID_STATUS")

		in.Status = models.StatusClosed
		_, err = svc.Create(ctx, in, "")
		testutil.AssertAppError(t, err, "INVALID_STATUS_TRANSITION")

		in.Status = models.StatusDraft
		in.Visibility = "public"
		_, err = svc.Create(ctx, in, "")
		testutil.AssertAppError(t, err, "INVALID_VISIBILITY")
	})
}

func TestUpdatePosition(t *testing.T) {
	ctx := context.Background()

	t.Run("cost_basis_recomputed_exactly", func(t *testing.T) {
		svc, _ := newTestPositionService(t)
		p, err := svc.Create(ctx, validInput(), "")
		testutil.AssertNoError(t, err)

		steps := []struct{ price, qty, want string }{
			{"0.1", "3", "0.3"},
			{"33.33", "3", "99.99"},
			{"12.345", "7.5", "92.5875"},
		}
		for _, st := range steps {
			p, err = svc.Update(ctx, p.ID, PositionPatch{EntryPrice: decPtr(st.price), Quantity: decPtr(st.qty)}, "", "")
			testutil.AssertNoError(t, err)
			testutil.AssertDecimal(t, p.CostBasis, st.want)
		}

		p, err = svc.Update(ctx, p.ID, PositionPatch{Quantity: decPtr("2")}, "", "")
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, p.CostBasis, "24.69")

		p, err = svc.Update(ctx, p.ID, PositionPatch{Title: strPtr("Renamed")}, "", "")
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, p.CostBasis, "24.69")
	})

	t.Run("opened_date_set_once", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		in := validInput()
		in.EntryDate = datePtr("2023-12-15")
		p, err := svc.Create(ctx, in, "")
		testutil.AssertNoError(t, err)

		p, err = svc.Update(ctx, p.ID, PositionPatch{Status: statusPtr(models.StatusLive), EntryDate: datePtr("2024-01-01")}, "", "")
		testutil.AssertNoError(t, err)
		if p.OpenedDate == nil || p.OpenedDate.String() != "2024-01-01" {
			t.Fatalf("expected opened_date 2024-01-01, got %v", p.OpenedDate)
		}

		p, err = svc.Update(ctx, p.ID, PositionPatch{OpenedDate: datePtr("2024-02-02"), Status: statusPtr(models.StatusLive)}, "", "")
		testutil.AssertNoError(t, err)
		if p.OpenedDate.String() != "2024-01-01" {
			t.Errorf("opened_date must not be overwritten, got %s", p.OpenedDate)
		}

		var stored models.Position
		if err := db.First(&stored, "id = ?", p.ID).Error; err != nil {
			t.Fatalf("reload: %v", err)
		}
		if stored.OpenedDate == nil || stored.OpenedDate.String() != "2024-01-01" {
			t.Errorf("stored opened_date %v", stored.OpenedDate)
		}
	})

	t.Run("opened_date_fallbacks", func(t *testing.T) {
		svc, _ := newTestPositionService(t)

		p, err := svc.Create(ctx, validInput(), "")
		testutil.AssertNoError(t, err)
		p, err = svc.Update(ctx, p.ID, PositionPatch{Status: statusPtr(models.StatusLive), OpenedDate: datePtr("2024-01-05")}, "", "")
		testutil.AssertNoError(t, err)
		if p.OpenedDate.String() != "2024-01-05" {
			t.Errorf("explicit opened_date should win, got %s", p.OpenedDate)
		}

		q, err := svc.Create(ctx, validInput(), "")
		testutil.AssertNoError(t, err)
		q, err = svc.Update(ctx, q.ID, PositionPatch{Status: statusPtr(models.StatusLive)}, "", "")
		testutil.AssertNoError(t, err)
		if q.OpenedDate.String() != "2024-01-01" {
			t.Errorf("expected the record's entry date, got %s", q.OpenedDate)
		}
	})

	t.Run("audit_summary", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		p, err := svc.Create(ctx, validInput(), "")
		testutil.AssertNoError(t, err)

		_, err = svc.Update(ctx, p.ID, PositionPatch{PublicNote: strPtr("hello")}, "", "")
		testutil.AssertNoError(t, err)
		_, err = svc.Update(ctx, p.ID, PositionPatch{NotesAdmin: strPtr("thesis")}, "", "Position details updated")
		testutil.AssertNoError(t, err)

		entries := auditEntries(t, db, p.ID)
		if len(entries) != 3 {
			t.Fatalf("expected 3 audit entries, got %d", len(entries))
		}
		if entries[1].Action != models.AuditEdit || entries[1].DiffSummary != "Position updated" {
			t.Errorf("unexpected default edit entry %+v", entries[1])
		}
		if entries[2].DiffSummary != "Position details updated" {
			t.Errorf("unexpected custom edit entry %+v", entries[2])
		}
	})

	t.Run("not_found", func(t *testing.T) {
		svc, _ := newTestPositionService(t)
		_, err := svc.Update(ctx, "0190b1c4-0000-7000-8000-000000000000", PositionPatch{Title: strPtr("x")}, "", "")
		testutil.AssertAppError(t, err, "POSITION_NOT_FOUND")
	})

	t.Run("illegal_transitions", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		live := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive))

		_, err := svc.Update(ctx, live.ID, PositionPatch{Status: statusPtr(models.StatusDraft)}, "", "")
		testutil.AssertAppError(t, err, "INVALID_STATUS_TRANSITION")

		_, err = svc.Update(ctx, live.ID, PositionPatch{Status: statusPtr(models.StatusClosed)}, "", "")
		testutil.AssertAppError(t, err, "INVALID_STATUS_TRANSITION")

		_, err = svc.Update(ctx, live.ID, PositionPatch{Status: statusPtr(models.StatusArchived)}, "", "")
		testutil.AssertAppError(t, err, "INVALID_STATUS_TRANSITION")

		if n := len(auditEntries(t, db, live.ID)); n != 0 {
			t.Errorf("rejected updates must not be audited, got %d entries", n)
		}
	})

	t.Run("locked_after_close", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		closed := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusClosed))

		_, err := svc.Update(ctx, closed.ID, PositionPatch{EntryPrice: decPtr("1")}, "", "")
		testutil.AssertAppError(t, err, "POSITION_LOCKED")

		p, err := svc.Update(ctx, closed.ID, PositionPatch{PublicNote: strPtr("post mortem")}, "", "")
		testutil.AssertNoError(t, err)
		if p.PublicNote != "post mortem" {
			t.Errorf("descriptive edits stay allowed, got %q", p.PublicNote)
		}
	})

	t.Run("clears_optional_text", func(t *testing.T) {
		svc, _ := newTestPositionService(t)
		p, err := svc.Create(ctx, validInput(), "")
		testutil.AssertNoError(t, err)

		p, err = svc.Update(ctx, p.ID, PositionPatch{Ticker: strPtr("")}, "", "")
		testutil.AssertNoError(t, err)
		if p.Ticker != nil {
			t.Errorf("expected ticker cleared, got %v", *p.Ticker)
		}
	})
}

func TestOptimisticConcurrency(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)

	p, err := svc.Create(ctx, validInput(), "")
	testutil.AssertNoError(t, err)

	stale := p.Version
	p, err = svc.Update(ctx, p.ID, PositionPatch{Title: strPtr("first"), ExpectedVersion: &stale}, "", "")
	testutil.AssertNoError(t, err)
	if p.Version != stale+1 {
		t.Fatalf("expected version %d, got %d", stale+1, p.Version)
	}

	_, err = svc.Update(ctx, p.ID, PositionPatch{Title: strPtr("second"), ExpectedVersion: &stale}, "", "")
	testutil.AssertAppError(t, err, "VERSION_CONFLICT")

	_, err = svc.Close(ctx, p.ID, ClosePositionInput{ClosingPrice: dec("1"), ClosingDate: datePtr("2024-02-01"), ExpectedVersion: &stale}, "")
	testutil.AssertAppError(t, err, "VERSION_CONFLICT")

	if n := len(auditEntries(t, db, p.ID)); n != 2 {
		t.Errorf("expected 2 audit entries (create, edit), got %d", n)
	}
	if n := outboxCount(t, db, p.ID); n != 2 {
		t.Errorf("expected 2 outbox events, got %d", n)
	}

	var stored models.Position
	if err := db.First(&stored, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Title != "first" {
		t.Errorf("stale write must not land, title is %q", stored.Title)
	}
}

func TestClosePosition(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		price string
		want  string
		notes string
	}{
		{"gain", "120", "200", "Realized P&L: 200.00"},
		{"loss", "90", "-100", "Realized P&L: -100.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, db := newTestPositionService(t)
			live := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive))

			p, err := svc.Close(ctx, live.ID, ClosePositionInput{
				ClosingPrice: dec(tt.price),
				ClosingDate:  datePtr("2024-06-01"),
				PublicNote:   strPtr("exited"),
			}, "")
			testutil.AssertNoError(t, err)

			if p.Status != models.StatusClosed {
				t.Errorf("expected Closed, got %s", p.Status)
			}
			if !p.RealizedPnL.Valid {
				t.Fatal("expected realized_pnl")
			}
			testutil.AssertDecimal(t, p.RealizedPnL.Decimal, tt.want)
			if p.PublicNote != "exited" {
				t.Errorf("expected public note overwrite, got %q", p.PublicNote)
			}

			entries := auditEntries(t, db, live.ID)
			if len(entries) != 1 {
				t.Fatalf("expected 1 audit entry, got %d", len(entries))
			}
			if entries[0].Action != models.AuditClose || entries[0].DiffSummary != "Position closed at "+tt.price {
				t.Errorf("unexpected close entry %+v", entries[0])
			}
			if entries[0].Notes == nil || *entries[0].Notes != tt.notes {
				t.Errorf("unexpected close notes %v", entries[0].Notes)
			}
		})
	}

	t.Run("requires_live", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		in := ClosePositionInput{ClosingPrice: dec("120"), ClosingDate: datePtr("2024-06-01")}
		for _, st := range []models.PositionStatus{models.StatusDraft, models.StatusClosed, models.StatusArchived} {
			p := testutil.CreateTestPosition(t, db, testutil.WithStatus(st))
			_, err := svc.Close(ctx, p.ID, in, "")
			testutil.AssertAppError(t, err, "INVALID_STATUS_TRANSITION")
		}
	})

	t.Run("validation", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		live := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive))

		_, err := svc.Close(ctx, live.ID, ClosePositionInput{ClosingPrice: decimal.Zero, ClosingDate: datePtr("2024-06-01")}, "")
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")

		_, err = svc.Close(ctx, live.ID, ClosePositionInput{ClosingPrice: dec("1")}, "")
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")

		_, err = svc.Close(ctx, live.ID, ClosePositionInput{ClosingPrice: dec("1"), ClosingDate: datePtr("2023-06-01")}, "")
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})
}

func TestArchivePosition(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)

	for _, st := range []models.PositionStatus{models.StatusDraft, models.StatusLive, models.StatusClosed} {
		p := testutil.CreateTestPosition(t, db, testutil.WithStatus(st))
		archived, err := svc.Archive(ctx, p.ID, "")
		testutil.AssertNoError(t, err)
		if archived.Status != models.StatusArchived {
			t.Errorf("%s: expected Archived, got %s", st, archived.Status)
		}
		entries := auditEntries(t, db, p.ID)
		if len(entries) != 1 || entries[0].Action != models.AuditArchive || entries[0].DiffSummary != "Position archived" {
			t.Errorf("%s: unexpected archive audit %+v", st, entries)
		}

		_, err = svc.Archive(ctx, p.ID, "")
		testutil.AssertAppError(t, err, "INVALID_STATUS_TRANSITION")
	}
}

func TestToggleVisibility(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)
	p := testutil.CreateTestPosition(t, db)

	got, err := svc.ToggleVisibility(ctx, p.ID, models.VisibilityMembersView, "")
	testutil.AssertNoError(t, err)
	if got.Visibility != models.VisibilityMembersView {
		t.Errorf("expected members_view, got %s", got.Visibility)
	}

	_, err = svc.ToggleVisibility(ctx, p.ID, models.VisibilityAdminOnly, "")
	testutil.AssertNoError(t, err)

	_, err = svc.ToggleVisibility(ctx, p.ID, "everyone", "")
	testutil.AssertAppError(t, err, "INVALID_VISIBILITY")

	entries := auditEntries(t, db, p.ID)
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	if entries[0].Action != models.AuditPublish || entries[0].DiffSummary != "Visibility changed to members_view" {
		t.Errorf("unexpected publish entry %+v", entries[0])
	}
	if entries[1].Action != models.AuditUnpublish || entries[1].DiffSummary != "Visibility changed to admin_only" {
		t.Errorf("unexpected unpublish entry %+v", entries[1])
	}
}

func TestUpdateMarketPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("live", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		p := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive))

		got, err := svc.UpdateMarketPrice(ctx, p.ID, dec("105.5"), "")
		testutil.AssertNoError(t, err)
		if !got.MarketPrice.Valid {
			t.Fatal("expected market price")
		}
		testutil.AssertDecimal(t, got.MarketPrice.Decimal, "105.5")
		if got.PriceUpdatedAt == nil || !got.PriceUpdatedAt.Equal(fixedNow) {
			t.Errorf("expected price_updated_at %v, got %v", fixedNow, got.PriceUpdatedAt)
		}

		entries := auditEntries(t, db, p.ID)
		if len(entries) != 1 || entries[0].Action != models.AuditEdit || entries[0].DiffSummary != "Market price updated to 105.5" {
			t.Errorf("unexpected price audit %+v", entries)
		}
	})

	t.Run("blocked_when_inactive", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		for _, st := range []models.PositionStatus{models.StatusClosed, models.StatusArchived} {
			p := testutil.CreateTestPosition(t, db, testutil.WithStatus(st))
			_, err := svc.UpdateMarketPrice(ctx, p.ID, dec("1"), "")
			testutil.AssertAppError(t, err, "POSITION_NOT_ACTIVE")
		}
	})

	t.Run("non_positive", func(t *testing.T) {
		svc, db := newTestPositionService(t)
		p := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive))
		_, err := svc.UpdateMarketPrice(ctx, p.ID, dec("-2"), "")
		testutil.AssertAppError(t, err, "VALIDATION_ERROR")
	})
}

func seedAllCombinations(t *testing.T, db *gorm.DB) {
	t.Helper()
	day := 1
	for _, st := range models.AllStatuses {
		for _, v := range []models.Visibility{models.VisibilityAdminOnly, models.VisibilityMembersView} {
			testutil.CreateTestPosition(t, db,
				testutil.WithStatus(st),
				testutil.WithVisibility(v),
				testutil.WithEntryDate(models.NewDate(2024, time.January, day).String()),
			)
			day++
		}
	}
}

func TestListVisible(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)
	seedAllCombinations(t, db)

	t.Run("investor", func(t *testing.T) {
		res, err := svc.ListVisible(ctx, models.RoleInvestor, pagination.PageRequest{})
		testutil.AssertNoError(t, err)

		if res.TotalItems != 1 || len(res.Data) != 1 {
			t.Fatalf("expected exactly 1 visible position, got %d", res.TotalItems)
		}
		p := res.Data[0]
		if p.Status != models.StatusLive || p.Visibility != models.VisibilityMembersView {
			t.Errorf("investor saw %s/%s", p.Status, p.Visibility)
		}
	})

	t.Run("admin", func(t *testing.T) {
		res, err := svc.ListVisible(ctx, models.RoleAdmin, pagination.PageRequest{})
		testutil.AssertNoError(t, err)

		if res.TotalItems != 8 {
			t.Fatalf("expected all 8 positions, got %d", res.TotalItems)
		}
		for i := 1; i < len(res.Data); i++ {
			if res.Data[i-1].EntryDate.Before(res.Data[i].EntryDate.Time) {
				t.Fatalf("expected entry_date descending, got %s before %s", res.Data[i-1].EntryDate, res.Data[i].EntryDate)
			}
		}
	})

	t.Run("paginated", func(t *testing.T) {
		res, err := svc.ListVisible(ctx, models.RoleAdmin, pagination.PageRequest{Page: 2, PageSize: 3})
		testutil.AssertNoError(t, err)
		if len(res.Data) != 3 || res.TotalPages != 3 {
			t.Errorf("expected 3 items on page 2 of 3, got %d items, %d pages", len(res.Data), res.TotalPages)
		}
	})

	t.Run("unknown_role", func(t *testing.T) {
		_, err := svc.ListVisible(ctx, "guest", pagination.PageRequest{})
		testutil.AssertAppError(t, err, "FORBIDDEN")
	})
}

func TestGetVisible(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)

	hidden := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive))
	shown := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive), testutil.WithVisibility(models.VisibilityMembersView))
	if err := db.Model(&models.Position{}).Where("id = ?", shown.ID).Update("notes_admin", "secret").Error; err != nil {
		t.Fatalf("seed notes: %v", err)
	}

	_, err := svc.GetVisible(ctx, models.RoleInvestor, hidden.ID)
	testutil.AssertAppError(t, err, "POSITION_NOT_FOUND")

	got, err := svc.GetVisible(ctx, models.RoleInvestor, shown.ID)
	testutil.AssertNoError(t, err)
	if got.NotesAdmin != "" {
		t.Error("investor view must not carry admin notes")
	}
	if got.DaysHeld != 60 {
		t.Errorf("expected 60 days held at %s, got %d", fixedNow, got.DaysHeld)
	}

	adminView, err := svc.GetVisible(ctx, models.RoleAdmin, shown.ID)
	testutil.AssertNoError(t, err)
	if adminView.NotesAdmin != "secret" {
		t.Errorf("admin view lost admin notes: %q", adminView.NotesAdmin)
	}
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)
	seedAllCombinations(t, db)

	admin, err := svc.Summary(ctx, models.RoleAdmin)
	testutil.AssertNoError(t, err)
	if admin.Total != 8 {
		t.Errorf("expected 8 positions, got %d", admin.Total)
	}
	for _, st := range models.AllStatuses {
		if admin.StatusCounts[st] != 2 {
			t.Errorf("expected 2 %s positions, got %d", st, admin.StatusCounts[st])
		}
	}
	testutil.AssertDecimal(t, admin.CostBasis, "2000")

	inv, err := svc.Summary(ctx, models.RoleInvestor)
	testutil.AssertNoError(t, err)
	if inv.Total != 1 || inv.StatusCounts[models.StatusLive] != 1 || inv.StatusCounts[models.StatusDraft] != 0 {
		t.Errorf("unexpected investor summary %+v", inv)
	}
	testutil.AssertDecimal(t, inv.CostBasis, "1000")
}

func TestPricingTargets(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)

	live := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive), testutil.WithTicker("NVDA"))
	testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive))
	testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusDraft), testutil.WithTicker("AAPL"))
	closed := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusClosed), testutil.WithTicker("MSFT"))

	targets, err := svc.ListPricingTargets(ctx)
	testutil.AssertNoError(t, err)
	if len(targets) != 1 || targets[0].PositionID != live.ID || targets[0].Ticker != "NVDA" {
		t.Fatalf("unexpected targets %+v", targets)
	}

	res, err := svc.RecordMarketPrices(ctx, []PriceUpdate{
		{PositionID: live.ID, Price: dec("130.25")},
		{PositionID: closed.ID, Price: dec("400")},
		{PositionID: "0190b1c4-0000-7000-8000-000000000000", Price: dec("1")},
	}, "")
	testutil.AssertNoError(t, err)

	if res.Updated != 1 {
		t.Errorf("expected 1 update, got %d", res.Updated)
	}
	if len(res.Failed) != 2 {
		t.Fatalf("expected 2 failures, got %+v", res.Failed)
	}
	if res.Failed[0].Code != "POSITION_NOT_ACTIVE" || res.Failed[1].Code != "POSITION_NOT_FOUND" {
		t.Errorf("unexpected failure codes %+v", res.Failed)
	}
}

// failingAudit rejects every entry, standing in for an unavailable audit table.
type failingAudit struct{}

func (failingAudit) Record(context.Context, *gorm.DB, *models.AuditLog) error {
	return apperrors.Wrap(apperrors.ErrPersistence, errors.New("audit table unavailable"))
}

func (failingAudit) List(context.Context, *string, pagination.PageRequest) (*pagination.PageResponse[models.AuditLog], error) {
	return nil, nil
}

func TestAuditFailureRollsBackMutation(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := NewPositionService(db, failingAudit{})

	_, err := svc.Create(ctx, validInput(), "")
	testutil.AssertAppError(t, err, "PERSISTENCE_ERROR")
	if n := testutil.CountRows(t, db, &models.Position{}); n != 0 {
		t.Errorf("expected create to roll back, got %d positions", n)
	}

	p := testutil.CreateTestPosition(t, db, testutil.WithStatus(models.StatusLive))
	_, err = svc.Archive(ctx, p.ID, "")
	testutil.AssertAppError(t, err, "PERSISTENCE_ERROR")

	var stored models.Position
	if err := db.First(&stored, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Status != models.StatusLive || stored.Version != 1 {
		t.Errorf("expected archive to roll back, got %s v%d", stored.Status, stored.Version)
	}
	if n := testutil.CountRows(t, db, &models.OutboxEvent{}); n != 0 {
		t.Errorf("expected no outbox events, got %d", n)
	}
}

func TestEndToEndScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestPositionService(t)

	p, err := svc.Create(ctx, CreatePositionInput{
		Title:      "NVIDIA",
		Status:     models.StatusDraft,
		EntryDate:  datePtr("2023-12-20"),
		EntryPrice: dec("400"),
		Quantity:   dec("10"),
	}, "")
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, p.CostBasis, "4000")
	if p.OpenedDate != nil {
		t.Fatalf("expected no opened_date, got %s", p.OpenedDate)
	}

	p, err = svc.Update(ctx, p.ID, PositionPatch{Status: statusPtr(models.StatusLive), EntryDate: datePtr("2024-01-01")}, "", "")
	testutil.AssertNoError(t, err)
	if p.OpenedDate == nil || p.OpenedDate.String() != "2024-01-01" {
		t.Fatalf("expected opened_date 2024-01-01, got %v", p.OpenedDate)
	}

	_, err = svc.UpdateMarketPrice(ctx, p.ID, dec("450"), "")
	testutil.AssertNoError(t, err)
	live, err := svc.GetVisible(ctx, models.RoleAdmin, p.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertDecimal(t, live.UnrealizedPnL, "500")
	testutil.AssertDecimal(t, live.PerformancePct, "12.5")

	_, err = svc.Close(ctx, p.ID, ClosePositionInput{ClosingPrice: dec("470"), ClosingDate: datePtr("2024-06-01")}, "")
	testutil.AssertNoError(t, err)
	closed, err := svc.GetVisible(ctx, models.RoleAdmin, p.ID)
	testutil.AssertNoError(t, err)

	if closed.Status != models.StatusClosed {
		t.Errorf("expected Closed, got %s", closed.Status)
	}
	testutil.AssertDecimal(t, closed.RealizedPnL.Decimal, "700")
	testutil.AssertDecimal(t, closed.PerformancePct, "17.5")
	testutil.AssertDecimal(t, closed.UnrealizedPnL, "0")
	if closed.DaysHeld != 152 {
		t.Errorf("expected 152 days held, got %d", closed.DaysHeld)
	}
}

func TestLedgerOnMigratedSchema(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupMigratedTestDB(t)
	svc := NewPositionService(db, NewAuditService(db)).(*positionService)
	svc.now = func() time.Time { return fixedNow }
	admin := testutil.CreateTestAdmin(t, db)

	draft, err := svc.Create(ctx, validInput(), admin.ID)
	testutil.AssertNoError(t, err)

	liveIn := validInput()
	liveIn.Status = models.StatusLive
	liveIn.Visibility = models.VisibilityMembersView
	live, err := svc.Create(ctx, liveIn, admin.ID)
	testutil.AssertNoError(t, err)

	toClose, err := svc.Create(ctx, liveIn, admin.ID)
	testutil.AssertNoError(t, err)
	closed, err := svc.Close(ctx, toClose.ID, ClosePositionInput{ClosingPrice: dec("450"), ClosingDate: datePtr("2024-02-01")}, admin.ID)
	testutil.AssertNoError(t, err)

	toArchive, err := svc.Create(ctx, validInput(), admin.ID)
	testutil.AssertNoError(t, err)
	archived, err := svc.Archive(ctx, toArchive.ID, admin.ID)
	testutil.AssertNoError(t, err)

	for _, p := range []*models.Position{draft, live, closed, archived} {
		got, err := svc.GetVisible(ctx, models.RoleAdmin, p.ID)
		testutil.AssertNoError(t, err)
		if got.Status != p.Status {
			t.Errorf("stored status %s, want %s", got.Status, p.Status)
		}
	}
	if closed.Status != models.StatusClosed || archived.Status != models.StatusArchived {
		t.Fatalf("unexpected lifecycle result: closed=%s archived=%s", closed.Status, archived.Status)
	}
	testutil.AssertDecimal(t, closed.RealizedPnL.Decimal, "500")

	res, err := svc.ListVisible(ctx, models.RoleInvestor, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if res.TotalItems != 1 || res.Data[0].ID != live.ID {
		t.Fatalf("investor should see only the live published position, got %d items", res.TotalItems)
	}

	var actions int64
	if err := db.Model(&models.AuditLog{}).Count(&actions).Error; err != nil {
		t.Fatalf("count audit rows: %v", err)
	}
	if actions != 6 {
		t.Errorf("expected 6 audit rows, got %d", actions)
	}
}

func TestUpdateKeepsEmptyTags(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)

	in := validInput()
	in.Tags = nil
	p, err := svc.Create(ctx, in, "")
	testutil.AssertNoError(t, err)

	p, err = svc.Update(ctx, p.ID, PositionPatch{Title: strPtr("Renamed")}, "", "")
	testutil.AssertNoError(t, err)
	if p.Tags == nil {
		t.Error("tags should stay an empty list after an edit")
	}

	var stored models.Position
	if err := db.First(&stored, "id = ?", p.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Tags == nil || len(stored.Tags) != 0 {
		t.Errorf("expected stored tags [], got %#v", stored.Tags)
	}
}

func TestGetVisibleByStatusAndVisibility(t *testing.T) {
	ctx := context.Background()
	svc, db := newTestPositionService(t)

	for _, st := range models.AllStatuses {
		for _, v := range []models.Visibility{models.VisibilityAdminOnly, models.VisibilityMembersView} {
			p := testutil.CreateTestPosition(t, db, testutil.WithStatus(st), testutil.WithVisibility(v))

			_, err := svc.GetVisible(ctx, models.RoleAdmin, p.ID)
			testutil.AssertNoError(t, err)

			_, err = svc.GetVisible(ctx, models.RoleInvestor, p.ID)
			if st == models.StatusLive && v == models.VisibilityMembersView {
				testutil.AssertNoError(t, err)
			} else {
				testutil.AssertAppError(t, err, "POSITION_NOT_FOUND")
			}
		}
	}
}
