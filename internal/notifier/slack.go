package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/scheduler"
)

// Ensure SlackNotifier implements scheduler.Notifier.
var _ scheduler.Notifier = (*SlackNotifier)(nil)

// maxListedItems bounds the per-item lines in one Slack message.
const maxListedItems = 10

// SlackNotifier posts batch summaries to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts each batch report to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// NotifyBatch sends one Block Kit message summarizing r. Empty reports are
// not sent. A 429 is retried once after Retry-After.
func (s *SlackNotifier) NotifyBatch(ctx context.Context, r importer.BatchReport) error {
	if r.Empty() {
		return nil
	}

	body, err := json.Marshal(buildPayload(r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryAfter):
		}
		status, _, err = s.post(ctx, body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		s.logger.Info("slack message sent", "items", len(r.Items), "retried", true)
		return nil
	}

	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	s.logger.Info("slack message sent", "items", len(r.Items))
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type   string      `json:"type"`
	Text   *slackText  `json:"text,omitempty"`
	Fields []slackText `json:"fields,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SendTestMessage sends a sample batch report to verify the integration works.
func SendTestMessage(ctx context.Context, n scheduler.Notifier) error {
	return n.NotifyBatch(ctx, importer.BatchReport{
		Succeeded: 1,
		Items: []importer.ItemOutcome{{
			ItemID:  "test-001",
			URL:     "https://example.com/jobs/integration-test",
			Outcome: importer.OutcomeCreated,
			Message: "Test notification, integration verified",
		}},
	})
}

var outcomeIcons = map[importer.Outcome]string{
	importer.OutcomeCreated:   "✅",
	importer.OutcomeUpdated:   "🔄",
	importer.OutcomeDuplicate: "➖",
	importer.OutcomeFailed:    "❌",
}

func buildPayload(r importer.BatchReport) slackPayload {
	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: fmt.Sprintf("📥 Job import: %d processed", len(r.Items))},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Succeeded:*\n" + strconv.Itoa(r.Succeeded)},
				{Type: "mrkdwn", Text: "*Failed:*\n" + strconv.Itoa(r.Failed)},
				{Type: "mrkdwn", Text: "*Duplicates:*\n" + strconv.Itoa(r.Duplicates)},
			},
		},
	}

	var lines []string
	for i, it := range r.Items {
		if i == maxListedItems {
			lines = append(lines, fmt.Sprintf("_and %d more_", len(r.Items)-maxListedItems))
			break
		}
		line := outcomeIcons[it.Outcome] + " <" + it.URL + ">"
		if it.Message != "" {
			line += " " + it.Message
		}
		lines = append(lines, line)
	}
	blocks = append(blocks,
		slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: strings.Join(lines, "\n")}},
		slackBlock{Type: "divider"},
	)

	return slackPayload{Blocks: blocks}
}
