package mail_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/neomorfeo/secretsanta/internal/adapter/mail"
)

type sentRequest struct {
	auth string
	body map[string]string
}

// newProvider fakes a transactional mail API that rejects the given addresses.
func newProvider(t *testing.T, reject ...string) (*httptest.Server, *[]sentRequest) {
	t.Helper()

	var (
		mu   sync.Mutex
		sent []sentRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		mu.Lock()
		sent = append(sent, sentRequest{auth: r.Header.Get("Authorization"), body: body})
		n := len(sent)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		for _, addr := range reject {
			if body["to"] == addr {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "mailbox unavailable"})
				return
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "msg-" + strconv.Itoa(n), "status": "queued"})
	}))
	t.Cleanup(srv.Close)

	return srv, &sent
}

func TestHTTPProvider_Delivers(t *testing.T) {
	srv, sent := newProvider(t)

	m, err := mail.New(mail.Config{
		Provider: mail.ProviderHTTP,
		From:     "santa@example.com",
		APIURL:   srv.URL,
		APIKey:   "secret-key",
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := m.Deliver(context.Background(), "Office party", cycle)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if report.Accepted != 3 {
		t.Fatalf("Accepted = %d, want 3", report.Accepted)
	}
	if report.Outcomes[0].ProviderID != "msg-1" || report.Outcomes[0].Status != "queued" {
		t.Errorf("outcome = %+v, want id msg-1 status queued", report.Outcomes[0])
	}

	if len(*sent) != 3 {
		t.Fatalf("provider received %d requests, want 3", len(*sent))
	}
	first := (*sent)[0]
	if first.auth != "Bearer secret-key" {
		t.Errorf("Authorization = %q", first.auth)
	}
	if first.body["to"] != "ann@example.com" || first.body["from"] != "santa@example.com" {
		t.Errorf("envelope = %v", first.body)
	}
	if !strings.Contains(first.body["subject"], "Office party") {
		t.Errorf("subject = %q, want session name", first.body["subject"])
	}
	if !strings.Contains(first.body["text"], "Bob (bob@example.com)") {
		t.Errorf("text = %q, want recipient name and email", first.body["text"])
	}
}

func TestHTTPProvider_RejectionIsReportedNotRetried(t *testing.T) {
	srv, sent := newProvider(t, "bob@example.com")

	m, err := mail.New(mail.Config{Provider: mail.ProviderHTTP, From: "santa@example.com", APIURL: srv.URL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := m.Deliver(context.Background(), "Office party", cycle)
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if report.Accepted != 2 {
		t.Errorf("Accepted = %d, want 2", report.Accepted)
	}

	bobOutcome := report.Outcomes[1]
	if bobOutcome.Accepted {
		t.Error("bob's message should be rejected")
	}
	if !strings.Contains(bobOutcome.Status, "422") || !strings.Contains(bobOutcome.Status, "mailbox unavailable") {
		t.Errorf("Status = %q, want provider status and reason", bobOutcome.Status)
	}

	if len(*sent) != 3 {
		t.Errorf("provider received %d requests, want 3 (no retries)", len(*sent))
	}
}

func TestHTTPProvider_Unreachable(t *testing.T) {
	srv, _ := newProvider(t)
	url := srv.URL
	srv.Close()

	m, err := mail.New(mail.Config{Provider: mail.ProviderHTTP, From: "santa@example.com", APIURL: url})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := m.Deliver(context.Background(), "Office party", cycle[:1])
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if report.Accepted != 0 || report.Outcomes[0].Accepted {
		t.Errorf("report = %+v, want nothing accepted", report)
	}
}
