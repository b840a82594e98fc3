package channels

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestResendClient_SendEmail(t *testing.T) {
	var gotAuth string
	var gotBody resendSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"id": "msg-123"})
	}))
	defer srv.Close()

	c := NewResendClient("re_test", srv.URL)
	id, err := c.SendEmail(context.Background(), EmailRequest{
		From:     "nmbli <quote-b1@nmbli.com>",
		To:       "sales@dealer.com",
		Subject:  "Quote Request",
		TextBody: "hello",
		HTMLBody: "<p>hello</p>",
	})
	if err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
	if id != "msg-123" {
		t.Errorf("id = %q", id)
	}
	if gotAuth != "Bearer re_test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody.To != "sales@dealer.com" || gotBody.HTML != "<p>hello</p>" {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestResendClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := NewResendClient("re_test", srv.URL).SendEmail(context.Background(), EmailRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("StatusCode = %d", apiErr.StatusCode)
	}
}

func TestTwilioClient_SendSMS(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/2010-04-01/Accounts/AC123/Messages.json" {
			t.Errorf("path = %q", r.URL.Path)
		}
		user, pass, _ := r.BasicAuth()
		if user != "AC123" || pass != "tok" {
			t.Errorf("basic auth = %q/%q", user, pass)
		}
		r.ParseForm()
		if r.PostForm.Get("To") != "+14085550100" || r.PostForm.Get("From") != "+14155550999" {
			t.Errorf("form = %v", r.PostForm)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sid": "SM987"})
	}))
	defer srv.Close()

	c := NewTwilioClient("AC123", "tok", "+14155550999", srv.URL)
	sid, err := c.SendSMS(context.Background(), SMSRequest{To: "+14085550100", Body: "hi"})
	if err != nil {
		t.Fatalf("SendSMS: %v", err)
	}
	if sid != "SM987" {
		t.Errorf("sid = %q", sid)
	}
}

func TestTwilioClient_MissingFromNumber(t *testing.T) {
	c := NewTwilioClient("AC123", "tok", "", "http://unused")
	if _, err := c.SendSMS(context.Background(), SMSRequest{To: "+1", Body: "x"}); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestSkyvernClient_CreateWorkflow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req skyvernRunRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.NavigationGoal == "" {
			t.Error("missing navigation goal")
		}
		json.NewEncoder(w).Encode(map[string]string{"run_id": "run-1"})
	}))
	defer srv.Close()

	c := NewSkyvernClient("sk_test", srv.URL)
	run, err := c.CreateWorkflow(context.Background(), WorkflowRequest{
		URL:  "https://dealer.example.com",
		Goal: "request a quote",
	})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	if run.RunID != "run-1" {
		t.Errorf("RunID = %q", run.RunID)
	}
	if run.Status != "pending" {
		t.Errorf("Status = %q, want pending default", run.Status)
	}
}

func TestSkyvernClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "boom", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"run_id": "run-2", "status": "running"})
	}))
	defer srv.Close()

	c := NewSkyvernClient("sk_test", srv.URL)
	c.Policy = Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	run, err := c.CreateWorkflow(context.Background(), WorkflowRequest{URL: "https://x"})
	if err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
	if run.Status != "running" {
		t.Errorf("Status = %q", run.Status)
	}
}

func TestSkyvernClient_NoRetryOnBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewSkyvernClient("sk_test", srv.URL)
	c.Policy = Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	if _, err := c.CreateWorkflow(context.Background(), WorkflowRequest{URL: "https://x"}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}
