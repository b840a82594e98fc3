package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nmbli/concierge/internal/automation"
	"github.com/nmbli/concierge/internal/channels"
	"github.com/nmbli/concierge/internal/compose"
	"github.com/nmbli/concierge/internal/db"
	"github.com/nmbli/concierge/internal/directory"
	"github.com/nmbli/concierge/internal/models"
	"github.com/nmbli/concierge/internal/negotiation"
	"github.com/nmbli/concierge/internal/quotes"
	"gorm.io/gorm"
)

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

type fakeSMS struct{}

func (fakeSMS) SendSMS(ctx context.Context, req channels.SMSRequest) (string, error) {
	return "sid-1", nil
}

type fakeBrowser struct{}

func (fakeBrowser) CreateWorkflow(ctx context.Context, req channels.WorkflowRequest) (channels.WorkflowRun, error) {
	return channels.WorkflowRun{RunID: "run-1", Status: "queued"}, nil
}

type fakeFinder struct {
	dealers []directory.DealerInfo
}

func (f *fakeFinder) FindDealers(ctx context.Context, mk, state string, count int) ([]directory.DealerInfo, error) {
	return f.dealers, nil
}

func newTestServer(t *testing.T, email *fakeEmail, finder directory.Finder) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gdb, err := db.ConnectSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}

	composer := &compose.Composer{Domain: "nmbli.com", FromName: "nmbli"}
	orch := &automation.Orchestrator{
		DB:          gdb,
		Email:       email,
		SMS:         fakeSMS{},
		Browser:     fakeBrowser{},
		Finder:      finder,
		Composer:    composer,
		DealerCount: 15,
		SendTimeout: time.Second,
	}
	engine := &negotiation.Engine{
		DB:           gdb,
		Orchestrator: orch,
		CounterDelay: 2 * time.Minute,
		FinalDelay:   4 * time.Minute,
	}
	router := Router(StartOpts{
		DB:           gdb,
		Orchestrator: orch,
		Engine:       engine,
		Parser:       quotes.NewParser("nmbli.com"),
	})
	return router, gdb
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, out
}

func createBrief(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w, out := doJSON(t, router, http.MethodPost, "/briefs", map[string]interface{}{
		"buyerId": "u-1",
		"makes":   []string{"Mazda"},
		"models":  []string{"CX-50"},
		"zipcode": "94105",
		"maxOtd":  42000,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create brief status = %d, body %s", w.Code, w.Body.String())
	}
	id, _ := out["ID"].(string)
	if id == "" {
		t.Fatalf("brief ID missing in %v", out)
	}
	return id
}

func TestCreateAndGetBrief(t *testing.T) {
	router, _ := newTestServer(t, &fakeEmail{}, &fakeFinder{})
	id := createBrief(t, router)

	w, out := doJSON(t, router, http.MethodGet, "/briefs/"+id, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get brief status = %d", w.Code)
	}
	if out["brief"] == nil {
		t.Errorf("response missing brief: %v", out)
	}

	w, _ = doJSON(t, router, http.MethodGet, "/briefs/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing brief status = %d, want 404", w.Code)
	}
}

func TestCreateBrief_Invalid(t *testing.T) {
	router, _ := newTestServer(t, &fakeEmail{}, &fakeFinder{})
	w, _ := doJSON(t, router, http.MethodPost, "/briefs", map[string]interface{}{
		"makes":   []string{"Mazda"},
		"zipcode": "ABCDE",
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSendQuotes_ThenDuplicate(t *testing.T) {
	email := &fakeEmail{failTo: map[string]bool{"sales@bad.example.com": true}}
	finder := &fakeFinder{dealers: []directory.DealerInfo{
		{Name: "Good Mazda", Address: "1 St", City: "a", State: "CA", Email: "sales@good.example.com"},
		{Name: "Bad Mazda", Address: "2 St", City: "b", State: "CA", Email: "sales@bad.example.com"},
	}}
	router, gdb := newTestServer(t, email, finder)
	id := createBrief(t, router)

	w, out := doJSON(t, router, http.MethodPost, "/briefs/"+id+"/send-quotes", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("send-quotes status = %d, body %s", w.Code, w.Body.String())
	}
	if sent := out["sent"].([]interface{}); len(sent) != 1 {
		t.Errorf("sent = %v, want 1", sent)
	}
	if failed := out["failed"].([]interface{}); len(failed) != 1 {
		t.Errorf("failed = %v, want 1", failed)
	}

	var brief models.Brief
	gdb.First(&brief, "id = ?", id)
	if brief.Status != models.BriefStatusOffers {
		t.Errorf("brief status = %q, want offers", brief.Status)
	}

	w, out = doJSON(t, router, http.MethodPost, "/briefs/"+id+"/send-quotes", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate send status = %d, want 400", w.Code)
	}
	if msg, _ := out["error"].(string); !strings.Contains(msg, "already sent") {
		t.Errorf("error = %q", msg)
	}

	w, _ = doJSON(t, router, http.MethodPost, "/briefs/missing/send-quotes", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing brief status = %d, want 404", w.Code)
	}
}

func TestInboundEmail(t *testing.T) {
	router, gdb := newTestServer(t, &fakeEmail{}, &fakeFinder{})
	id := createBrief(t, router)

	w, out := doJSON(t, router, http.MethodPost, "/emails/inbound", map[string]string{
		"to":      "quote-" + id + "@nmbli.com",
		"from":    "jane.doe@capitolmazda.com",
		"subject": "Your CX-50 quote",
		"text":    "MSRP: $32,500\nOut-the-Door Price: $33,800",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("inbound status = %d, body %s", w.Code, w.Body.String())
	}
	if out["briefId"] != id || out["success"] != true {
		t.Errorf("response = %v", out)
	}
	quote := out["quote"].(map[string]interface{})
	if quote["otdPrice"].(float64) != 33800 {
		t.Errorf("otdPrice = %v, want 33800", quote["otdPrice"])
	}
	if quote["dealerName"] != "jane doe" {
		t.Errorf("dealerName = %v", quote["dealerName"])
	}

	var stored models.Quote
	if err := gdb.First(&stored, "brief_id = ?", id).Error; err != nil {
		t.Fatalf("draft quote not stored: %v", err)
	}
	if stored.Status != models.QuoteStatusDraft || stored.OTDTotal != 33800 {
		t.Errorf("stored quote = %+v", stored)
	}
}

func TestInboundEmail_InvalidRecipient(t *testing.T) {
	router, _ := newTestServer(t, &fakeEmail{}, &fakeFinder{})

	w, out := doJSON(t, router, http.MethodPost, "/emails/inbound", map[string]string{
		"to":   "info@nmbli.com",
		"from": "jane@dealer.com",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if out["error"] != "Invalid recipient address format" {
		t.Errorf("error = %v", out["error"])
	}
}

func TestQuoteAcceptAndPublish(t *testing.T) {
	router, gdb := newTestServer(t, &fakeEmail{}, &fakeFinder{})
	id := createBrief(t, router)

	if err := gdb.Create(&models.Dealership{ID: "d-1", Name: "Stevens Creek Mazda", City: "San Jose"}).Error; err != nil {
		t.Fatalf("seed dealer: %v", err)
	}
	draft, err := quotes.IngestParsed(gdb, quotes.ParsedQuote{BriefID: id, DealerEmail: "x@y.com"})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	w, out := doJSON(t, router, http.MethodPost, "/quotes/"+draft.ID+"/publish", map[string]string{"note": "verified"})
	if w.Code != http.StatusOK {
		t.Fatalf("publish status = %d, body %s", w.Code, w.Body.String())
	}
	if out["Status"] != models.QuoteStatusPublished {
		t.Errorf("published status = %v", out["Status"])
	}

	w, _ = doJSON(t, router, http.MethodPost, "/quotes/"+draft.ID+"/accept", map[string]string{"buyerId": "u-1"})
	if w.Code != http.StatusOK {
		t.Fatalf("accept status = %d, body %s", w.Code, w.Body.String())
	}

	var brief models.Brief
	gdb.First(&brief, "id = ?", id)
	if brief.Status != models.BriefStatusContract {
		t.Errorf("brief status = %q, want contract", brief.Status)
	}

	w, _ = doJSON(t, router, http.MethodPost, "/quotes/missing/accept", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing quote status = %d, want 404", w.Code)
	}
}

func TestNegotiationTick(t *testing.T) {
	router, _ := newTestServer(t, &fakeEmail{}, &fakeFinder{})
	w, out := doJSON(t, router, http.MethodPost, "/negotiation/tick", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("tick status = %d", w.Code)
	}
	if out["success"] != true {
		t.Errorf("response = %v", out)
	}
}

func TestStart_MissingDeps(t *testing.T) {
	if err := Start(context.Background(), StartOpts{}); err == nil {
		t.Fatal("expected error for nil db")
	}
}
