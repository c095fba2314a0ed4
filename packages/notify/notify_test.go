package notify

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	name     string
	err      error
	received []*RunSummary
}

func (f *fakeNotifier) Notify(s *RunSummary) error {
	f.received = append(f.received, s)
	return f.err
}

func (f *fakeNotifier) Name() string { return f.name }

func passing() *RunSummary {
	return &RunSummary{TotalSuites: 1, TestsRun: 2, TestsSuccess: 2}
}

func failing() *RunSummary {
	return &RunSummary{
		TotalSuites:  2,
		TestsRun:     3,
		TestsSuccess: 2,
		TestsFail:    1,
		FailedSuites: []FailedSuite{{Name: "countries", File: "countries.json", Error: "step 0 (request) failed"}},
	}
}

func TestParseNotifyOn(t *testing.T) {
	on, err := ParseNotifyOn("")
	require.NoError(t, err)
	assert.Equal(t, NotifyFailure, on)

	on, err = ParseNotifyOn("recovery")
	require.NoError(t, err)
	assert.Equal(t, NotifyRecovery, on)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}

func TestManager_Policies(t *testing.T) {
	tests := []struct {
		policy NotifyOn
		runs   []*RunSummary
		want   int
	}{
		{NotifyAlways, []*RunSummary{passing(), failing()}, 2},
		{NotifyFailure, []*RunSummary{passing(), failing()}, 1},
		{NotifySuccess, []*RunSummary{passing(), failing()}, 1},
		{NotifyRecovery, []*RunSummary{passing(), failing(), passing(), passing()}, 2},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			n := &fakeNotifier{name: "fake"}
			m := NewManager(tt.policy, n)
			for _, run := range tt.runs {
				require.NoError(t, m.Notify(run))
			}
			assert.Len(t, n.received, tt.want)
		})
	}
}

func TestManager_RecoveryFlag(t *testing.T) {
	n := &fakeNotifier{name: "fake"}
	m := NewManager(NotifyRecovery)
	m.AddNotifier(n)

	require.NoError(t, m.Notify(failing()))
	recovered := passing()
	require.NoError(t, m.Notify(recovered))

	require.Len(t, n.received, 2)
	assert.False(t, n.received[0].IsRecovery)
	assert.True(t, recovered.IsRecovery)
}

func TestManager_JoinsErrors(t *testing.T) {
	ok := &fakeNotifier{name: "ok"}
	broken := &fakeNotifier{name: "broken", err: errors.New("webhook down")}
	m := NewManager(NotifyAlways, broken, ok)

	err := m.Notify(passing())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: webhook down")
	assert.Len(t, ok.received, 1, "later notifiers still run")
}

func TestSlackNotifier(t *testing.T) {
	var msg slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &msg))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s := NewSlackNotifier(server.URL, WithSlackChannel("#ci"), WithSlackHTTPClient(server.Client()))
	assert.Equal(t, "slack", s.Name())

	summary := failing()
	summary.RequestID = "run-42"
	summary.Duration = 1500 * time.Millisecond
	require.NoError(t, s.Notify(summary))

	assert.Equal(t, "#ci", msg.Channel)
	assert.Equal(t, "hitchain", msg.Username)
	require.Len(t, msg.Attachments, 1)
	a := msg.Attachments[0]
	assert.Equal(t, "danger", a.Color)
	assert.Equal(t, ":x: 1 of 2 suite(s) failed", a.Title)
	assert.Contains(t, a.Text, "`countries` (countries.json)")
	assert.Contains(t, a.Fields, slackField{Title: "Request ID", Value: "run-42", Short: true})
	assert.Contains(t, a.Fields, slackField{Title: "Duration", Value: "1.5s", Short: true})
}

func TestSlackNotifier_Recovery(t *testing.T) {
	var msg slackMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&msg)
	}))
	defer server.Close()

	summary := passing()
	summary.IsRecovery = true
	require.NoError(t, NewSlackNotifier(server.URL).Notify(summary))

	assert.Equal(t, "good", msg.Attachments[0].Color)
	assert.Equal(t, ":tada: Suites recovered!", msg.Attachments[0].Title)
}

func TestSlackNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("invalid_token"))
	}))
	defer server.Close()

	err := NewSlackNotifier(server.URL).Notify(passing())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403: invalid_token")
}

func TestTeamsNotifier(t *testing.T) {
	var msg teamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewTeamsNotifier(server.URL, WithTeamsHTTPClient(server.Client()))
	assert.Equal(t, "teams", n.Name())

	summary := failing()
	summary.RequestID = "run-42"
	summary.Duration = 1500 * time.Millisecond
	require.NoError(t, n.Notify(summary))

	assert.Equal(t, "message", msg.Type)
	require.Len(t, msg.Attachments, 1)
	card := msg.Attachments[0].Content
	assert.Equal(t, "AdaptiveCard", card.Type)
	require.NotEmpty(t, card.Body)

	assert.Equal(t, "❌ 1 of 2 suite(s) failed", card.Body[0].Text)
	assert.Equal(t, "attention", card.Body[0].Color)

	stats := card.Body[1].Columns
	require.Len(t, stats, 4)
	assert.Equal(t, "Failed", stats[2].Items[0].Text)
	assert.Equal(t, "1", stats[2].Items[1].Text)
	assert.Equal(t, "1.5s", stats[3].Items[1].Text)

	var texts []string
	for _, b := range card.Body {
		texts = append(texts, b.Text)
	}
	assert.Contains(t, texts, "Request ID: run-42")
	assert.Contains(t, texts, "- countries (countries.json): step 0 (request) failed")
}

func TestTeamsNotifier_Recovery(t *testing.T) {
	var msg teamsMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&msg)
	}))
	defer server.Close()

	summary := passing()
	summary.IsRecovery = true
	require.NoError(t, NewTeamsNotifier(server.URL).Notify(summary))

	title := msg.Attachments[0].Content.Body[0]
	assert.Equal(t, "🎉 Suites recovered!", title.Text)
	assert.Equal(t, "good", title.Color)
}

func TestTeamsNotifier_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Webhook message delivery failed"))
	}))
	defer server.Close()

	err := NewTeamsNotifier(server.URL).Notify(passing())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400: Webhook message delivery failed")
}
