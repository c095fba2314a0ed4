package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// TeamsNotifier sends notifications to Microsoft Teams via an incoming
// webhook, rendered as an Adaptive Card.
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
}

// TeamsOption is a functional option for TeamsNotifier
type TeamsOption func(*TeamsNotifier)

// WithTeamsHTTPClient replaces the default client, which times out after
// ten seconds.
func WithTeamsHTTPClient(c *http.Client) TeamsOption {
	return func(t *TeamsNotifier) {
		t.client = c
	}
}

// NewTeamsNotifier creates a new Teams notifier
func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	t := &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Name returns the name of the notifier
func (t *TeamsNotifier) Name() string {
	return "teams"
}

type teamsMessage struct {
	Type        string            `json:"type"`
	Attachments []teamsAttachment `json:"attachments"`
}

type teamsAttachment struct {
	ContentType string    `json:"contentType"`
	Content     teamsCard `json:"content"`
}

type teamsCard struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

// teamsBlock is an Adaptive Card element. Only the fields its Type uses
// are set.
type teamsBlock struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	Size     string        `json:"size,omitempty"`
	Weight   string        `json:"weight,omitempty"`
	Color    string        `json:"color,omitempty"`
	Wrap     bool          `json:"wrap,omitempty"`
	IsSubtle bool          `json:"isSubtle,omitempty"`
	Columns  []teamsColumn `json:"columns,omitempty"`
}

type teamsColumn struct {
	Type  string       `json:"type"`
	Width string       `json:"width"`
	Items []teamsBlock `json:"items"`
}

// Notify sends a notification to Teams
func (t *TeamsNotifier) Notify(summary *RunSummary) error {
	color := "good"
	title := "✅ All suites passed!"

	if summary.Failed() {
		color = "attention"
		title = fmt.Sprintf("❌ %d of %d suite(s) failed", len(summary.FailedSuites), summary.TotalSuites)
	} else if summary.IsRecovery {
		title = "🎉 Suites recovered!"
	}

	body := []teamsBlock{
		{Type: "TextBlock", Text: title, Size: "large", Weight: "bolder", Color: color},
		{
			Type: "ColumnSet",
			Columns: []teamsColumn{
				teamsStat("Tests Run", fmt.Sprintf("%d", summary.TestsRun), ""),
				teamsStat("Succeeded", fmt.Sprintf("%d", summary.TestsSuccess), "good"),
				teamsStat("Failed", fmt.Sprintf("%d", summary.TestsFail), "attention"),
				teamsStat("Duration", summary.Duration.Round(time.Millisecond).String(), ""),
			},
		},
	}

	if summary.RequestID != "" {
		body = append(body, teamsBlock{Type: "TextBlock", Text: "Request ID: " + summary.RequestID, IsSubtle: true})
	}

	if len(summary.FailedSuites) > 0 {
		body = append(body, teamsBlock{Type: "TextBlock", Text: "**Failed suites:**", Weight: "bolder"})
		for _, fs := range summary.FailedSuites {
			line := "- " + fs.Name
			if fs.File != "" {
				line += " (" + fs.File + ")"
			}
			if fs.Error != "" {
				line += ": " + fs.Error
			}
			body = append(body, teamsBlock{Type: "TextBlock", Text: line, Wrap: true})
		}
	}

	body = append(body, teamsBlock{
		Type:     "TextBlock",
		Text:     "hitchain · " + time.Now().Format(time.RFC1123),
		Size:     "small",
		IsSubtle: true,
	})

	msg := teamsMessage{
		Type: "message",
		Attachments: []teamsAttachment{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCard{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.4",
				Body:    body,
			},
		}},
	}

	return t.send(msg)
}

func teamsStat(label, value, color string) teamsColumn {
	return teamsColumn{
		Type:  "Column",
		Width: "auto",
		Items: []teamsBlock{
			{Type: "TextBlock", Text: label, IsSubtle: true},
			{Type: "TextBlock", Text: value, Weight: "bolder", Color: color},
		},
	}
}

func (t *TeamsNotifier) send(msg teamsMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal Teams message: %w", err)
	}

	req, err := http.NewRequest("POST", t.webhookURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Teams notification: %w", err)
	}
	defer resp.Body.Close()

	// Workflow-based webhooks answer 202
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("teams webhook returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
