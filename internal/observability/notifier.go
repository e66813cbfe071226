package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valter-silva-au/site-planner/pkg/models"
)

// Notifier sends newly raised alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, alerts []models.Alert) error
}

// slackNotifier posts alerts to a Slack incoming webhook.
type slackNotifier struct {
	webhookURL string
	client     *http.Client
}

// NewSlackNotifier creates a Notifier that posts to the given Slack webhook URL.
func NewSlackNotifier(webhookURL string) Notifier {
	return &slackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackMessage struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type string     `json:"type"`
	Text *slackText `json:"text,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Notify posts one message listing every alert. An empty slice sends nothing.
func (s *slackNotifier) Notify(ctx context.Context, alerts []models.Alert) error {
	if len(alerts) == 0 {
		return nil
	}

	body, err := json.Marshal(buildSlackMessage(alerts))
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func buildSlackMessage(alerts []models.Alert) slackMessage {
	header := "Planning alerts"
	if p := alerts[0].ProjectID; p != "" {
		header = fmt.Sprintf("Planning alerts for %s", p)
	}
	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: header},
	}}

	for i, alert := range alerts {
		if i > 0 {
			blocks = append(blocks, slackBlock{Type: "divider"})
		}
		text := fmt.Sprintf("%s *[%s]* `%s` %s\n_%s_",
			severityEmoji(alert.Severity),
			strings.ToUpper(string(alert.Severity)),
			alert.Type,
			alert.Message,
			alert.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"),
		)
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}
	return slackMessage{Blocks: blocks}
}

func severityEmoji(severity models.AlertSeverity) string {
	switch severity {
	case models.SeverityCritical:
		return "\U0001f534"
	case models.SeverityWarning:
		return "\U0001f7e1"
	case models.SeverityInfo:
		return "\U0001f535"
	default:
		return "\u2753"
	}
}

// MultiNotifier fans alerts out to several notifiers. Every notifier is
// tried; failures are joined into one error.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, alerts []models.Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, alerts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
