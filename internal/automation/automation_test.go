package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nmbli/concierge/internal/channels"
	"github.com/nmbli/concierge/internal/compose"
	"github.com/nmbli/concierge/internal/directory"
	"github.com/nmbli/concierge/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Brief{},
		&models.Dealership{},
		&models.DealerContact{},
		&models.DealerProspect{},
		&models.EmailMessage{},
		&models.SmsMessage{},
		&models.SkyvernRun{},
		&models.TimelineEvent{},
		&models.NegotiationRound{},
	); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

type fakeEmail struct {
	sent   []channels.EmailRequest
	failTo map[string]bool
}

func (f *fakeEmail) SendEmail(ctx context.Context, req channels.EmailRequest) (string, error) {
	if f.failTo[req.To] {
		return "", &channels.APIError{Provider: "resend", StatusCode: 500, Body: "boom"}
	}
	f.sent = append(f.sent, req)
	return "msg-1", nil
}

type fakeSMS struct {
	sent []channels.SMSRequest
}

func (f *fakeSMS) SendSMS(ctx context.Context, req channels.SMSRequest) (string, error) {
	f.sent = append(f.sent, req)
	return "sid-1", nil
}

type fakeBrowser struct {
	runs []channels.WorkflowRequest
}

func (f *fakeBrowser) CreateWorkflow(ctx context.Context, req channels.WorkflowRequest) (channels.WorkflowRun, error) {
	f.runs = append(f.runs, req)
	return channels.WorkflowRun{RunID: "run-1", Status: "queued"}, nil
}

type fakeFinder struct {
	dealers []directory.DealerInfo
	err     error
}

func (f *fakeFinder) FindDealers(ctx context.Context, mk, state string, count int) ([]directory.DealerInfo, error) {
	return f.dealers, f.err
}

func seedBrief(t *testing.T, db *gorm.DB) {
	t.Helper()
	if err := db.Create(&models.Brief{
		ID:        "b-1",
		BuyerID:   "u-1",
		Makes:     []string{"Mazda"},
		Models:    []string{"CX-50"},
		Zipcode:   "94105",
		MaxOTD:    42000,
		Status:    models.BriefStatusSourcing,
		CreatedAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed brief: %v", err)
	}
}

func newOrchestrator(db *gorm.DB, finder directory.Finder, email *fakeEmail, sms *fakeSMS, browser *fakeBrowser) *Orchestrator {
	return &Orchestrator{
		DB:          db,
		Email:       email,
		SMS:         sms,
		Browser:     browser,
		Finder:      finder,
		Composer:    &compose.Composer{Domain: "nmbli.com", FromName: "nmbli"},
		DealerCount: 15,
		SendTimeout: time.Second,
	}
}

func TestProcessBrief_PartialFailure(t *testing.T) {
	db := openTestDB(t)
	seedBrief(t, db)

	finder := &fakeFinder{dealers: []directory.DealerInfo{
		{Name: "Good Mazda", Address: "1 St", City: "a", State: "CA", Email: "sales@good.example.com"},
		{Name: "Bad Mazda", Address: "2 St", City: "b", State: "CA", Email: "sales@bad.example.com"},
		{Name: "Phone Mazda", Address: "3 St", City: "c", State: "CA", Phone: "+14155550100"},
	}}
	email := &fakeEmail{failTo: map[string]bool{"sales@bad.example.com": true}}
	sms := &fakeSMS{}
	o := newOrchestrator(db, finder, email, sms, &fakeBrowser{})

	result, err := o.ProcessBrief(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("ProcessBrief: %v", err)
	}
	if len(result.Sent) != 2 || len(result.Failed) != 1 {
		t.Fatalf("sent/failed = %d/%d, want 2/1", len(result.Sent), len(result.Failed))
	}
	if result.Failed[0].DealerName != "Bad Mazda" {
		t.Errorf("failed dealer = %q", result.Failed[0].DealerName)
	}

	var brief models.Brief
	db.First(&brief, "id = ?", "b-1")
	if brief.Status != models.BriefStatusOffers {
		t.Errorf("brief status = %q, want offers", brief.Status)
	}

	var contacted, failed int64
	db.Model(&models.TimelineEvent{}).Where("type = ?", models.EventDealerContacted).Count(&contacted)
	db.Model(&models.TimelineEvent{}).Where("type = ?", models.EventDealerContactFailed).Count(&failed)
	if contacted != 2 || failed != 1 {
		t.Errorf("timeline contacted/failed = %d/%d, want 2/1", contacted, failed)
	}

	if len(sms.sent) != 1 {
		t.Errorf("sms sends = %d, want 1 for the phone-only dealer", len(sms.sent))
	}

	var prospects int64
	db.Model(&models.DealerProspect{}).Where("status = ?", models.ProspectStatusContacted).Count(&prospects)
	if prospects != 2 {
		t.Errorf("contacted prospects = %d, want 2", prospects)
	}
}

func TestProcessBrief_DuplicateSendGuard(t *testing.T) {
	db := openTestDB(t)
	seedBrief(t, db)

	finder := &fakeFinder{dealers: []directory.DealerInfo{
		{Name: "Good Mazda", Address: "1 St", City: "a", State: "CA", Email: "sales@good.example.com"},
	}}
	email := &fakeEmail{}
	o := newOrchestrator(db, finder, email, &fakeSMS{}, &fakeBrowser{})

	if _, err := o.ProcessBrief(context.Background(), "b-1"); err != nil {
		t.Fatalf("first ProcessBrief: %v", err)
	}
	if _, err := o.ProcessBrief(context.Background(), "b-1"); !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("second ProcessBrief error = %v, want ErrAlreadySent", err)
	}
	if len(email.sent) != 1 {
		t.Errorf("emails sent = %d, want 1", len(email.sent))
	}
}

func TestProcessBrief_ZeroDealersIsNoOp(t *testing.T) {
	db := openTestDB(t)
	seedBrief(t, db)

	// The lookup returns nothing; contacting an empty set is a no-op, not
	// an error, and the brief still advances to offers.
	o := newOrchestrator(db, &fakeFinder{}, &fakeEmail{}, &fakeSMS{}, &fakeBrowser{})
	result, err := o.ProcessBrief(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("ProcessBrief: %v", err)
	}
	if len(result.Sent) != 0 || len(result.Failed) != 0 {
		t.Fatalf("sent/failed = %d/%d, want 0/0", len(result.Sent), len(result.Failed))
	}

	var brief models.Brief
	db.First(&brief, "id = ?", "b-1")
	if brief.Status != models.BriefStatusOffers {
		t.Errorf("brief status = %q, want offers", brief.Status)
	}

	var errs int64
	db.Model(&models.TimelineEvent{}).Where("type = ?", models.EventAutomationError).Count(&errs)
	if errs != 0 {
		t.Errorf("automation_error events = %d, want 0", errs)
	}
}

func TestProcessBrief_AllFailedStillAdvances(t *testing.T) {
	db := openTestDB(t)
	seedBrief(t, db)

	finder := &fakeFinder{dealers: []directory.DealerInfo{
		{Name: "Bad Mazda", Address: "1 St", City: "a", State: "CA", Email: "sales@bad.example.com"},
	}}
	email := &fakeEmail{failTo: map[string]bool{"sales@bad.example.com": true}}
	o := newOrchestrator(db, finder, email, &fakeSMS{}, &fakeBrowser{})

	result, err := o.ProcessBrief(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("ProcessBrief: %v", err)
	}
	if len(result.Sent) != 0 || len(result.Failed) != 1 {
		t.Fatalf("sent/failed = %d/%d, want 0/1", len(result.Sent), len(result.Failed))
	}

	// Every attempt failing does not strand the brief in sourcing.
	var brief models.Brief
	db.First(&brief, "id = ?", "b-1")
	if brief.Status != models.BriefStatusOffers {
		t.Errorf("brief status = %q, want offers", brief.Status)
	}

	// The run counts as sent: a retry hits the duplicate guard.
	if _, err := o.ProcessBrief(context.Background(), "b-1"); !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("second ProcessBrief error = %v, want ErrAlreadySent", err)
	}
}

func TestProcessBrief_DiscoveryFailureReleasesClaim(t *testing.T) {
	db := openTestDB(t)
	if err := db.Create(&models.Brief{
		ID:        "b-1",
		BuyerID:   "u-1",
		Makes:     []string{"Mazda"},
		Models:    []string{"CX-50"},
		Zipcode:   "96900", // no state mapping, so discovery fails
		MaxOTD:    42000,
		Status:    models.BriefStatusSourcing,
		CreatedAt: time.Now(),
	}).Error; err != nil {
		t.Fatalf("seed brief: %v", err)
	}

	o := newOrchestrator(db, &fakeFinder{}, &fakeEmail{}, &fakeSMS{}, &fakeBrowser{})
	if _, err := o.ProcessBrief(context.Background(), "b-1"); err == nil {
		t.Fatal("expected discovery error")
	}

	var count int64
	db.Model(&models.TimelineEvent{}).Where("type = ?", models.EventAutomationError).Count(&count)
	if count != 1 {
		t.Errorf("automation_error events = %d, want 1", count)
	}

	// The failed run releases its claim so the brief can be retried.
	_, err := o.ProcessBrief(context.Background(), "b-1")
	if err == nil {
		t.Fatal("expected discovery error on retry")
	}
	if errors.Is(err, ErrAlreadySent) {
		t.Fatalf("retry error = %v, want a fresh discovery error", err)
	}
}

func TestProcessBrief_BriefNotFound(t *testing.T) {
	db := openTestDB(t)
	o := newOrchestrator(db, &fakeFinder{}, &fakeEmail{}, &fakeSMS{}, &fakeBrowser{})
	if _, err := o.ProcessBrief(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing brief")
	}
}

func TestProcessBrief_SkyvernFallback(t *testing.T) {
	db := openTestDB(t)
	seedBrief(t, db)

	finder := &fakeFinder{dealers: []directory.DealerInfo{
		{Name: "Silent Mazda", Address: "1 St", City: "a", State: "CA"},
	}}
	browser := &fakeBrowser{}
	o := newOrchestrator(db, finder, &fakeEmail{}, &fakeSMS{}, browser)

	result, err := o.ProcessBrief(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("ProcessBrief: %v", err)
	}
	if len(result.Sent) != 1 || result.Sent[0].Channel != "skyvern" {
		t.Fatalf("result = %+v, want one skyvern send", result)
	}
	if len(browser.runs) != 1 {
		t.Fatalf("workflow runs = %d, want 1", len(browser.runs))
	}

	var run models.SkyvernRun
	if err := db.First(&run, "brief_id = ?", "b-1").Error; err != nil {
		t.Fatalf("skyvern run not persisted: %v", err)
	}
	if run.Status != "queued" || run.RunID != "run-1" {
		t.Errorf("run = %+v", run)
	}
}
