package alert

import (
	"context"
	"fmt"

	httpclient "blendguard/pkg/http"
)

type SlackChannel struct {
	webhookURL string
	client     *httpclient.Client
}

func NewSlackChannel(webhookURL string) *SlackChannel {
	return &SlackChannel{
		webhookURL: webhookURL,
		client:     httpclient.NewClient(webhookURL, httpclient.DefaultOptions),
	}
}

func (s *SlackChannel) Name() string {
	return "slack"
}

// Send posts operator alerts. Payloads addressed to a single user are skipped.
func (s *SlackChannel) Send(ctx context.Context, alert AlertPayload) error {
	if s.webhookURL == "" || alert.Recipient != "" {
		return nil
	}

	color := "#36a64f"
	switch alert.Level {
	case Warning:
		color = "#ffcc00"
	case Error:
		color = "#ff0000"
	case Critical:
		color = "#8b0000"
	}

	var fields []map[string]interface{}
	for _, k := range sortedKeys(alert.Fields) {
		fields = append(fields, map[string]interface{}{
			"title": k,
			"value": alert.Fields[k],
			"short": true,
		})
	}

	payload := map[string]interface{}{
		"attachments": []map[string]interface{}{
			{
				"color":   color,
				"pretext": fmt.Sprintf("[%s] %s", alert.Level, alert.Title),
				"text":    alert.Message,
				"fields":  fields,
				"ts":      alert.Timestamp.Unix(),
				"footer":  "BlendGuard",
			},
		},
	}

	if _, err := s.client.PostJSON(ctx, "", payload); err != nil {
		return fmt.Errorf("slack webhook failed: %w", redact(err, s.webhookURL))
	}
	return nil
}
