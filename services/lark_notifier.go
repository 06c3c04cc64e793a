package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mmtips-service/logger"
)

// LarkNotifier posts operator notices to a Lark bot webhook. With no webhook
// configured every call is a no-op.
type LarkNotifier struct {
	webhookURL string
	client     *http.Client
	enabled    bool
	now        func() time.Time
}

func NewLarkNotifier(webhookURL string) *LarkNotifier {
	enabled := webhookURL != ""
	if enabled {
		logger.Printf("[LarkNotifier] Initialized with webhook")
	} else {
		logger.Printf("[LarkNotifier] Disabled (no webhook URL)")
	}

	return &LarkNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		enabled:    enabled,
		now:        time.Now,
	}
}

type LarkMessage struct {
	MsgType string      `json:"msg_type"`
	Content interface{} `json:"content"`
}

type LarkTextContent struct {
	Text string `json:"text"`
}

type LarkPostContent struct {
	Post LarkPost `json:"post"`
}

type LarkPost struct {
	EnUs LarkPostLang `json:"en_us"`
}

type LarkPostLang struct {
	Title   string          `json:"title"`
	Content [][]LarkElement `json:"content"`
}

type LarkElement struct {
	Tag  string `json:"tag"`
	Text string `json:"text,omitempty"`
	Href string `json:"href,omitempty"`
}

func (n *LarkNotifier) SendText(text string) error {
	if !n.enabled {
		return nil
	}
	return n.send(LarkMessage{
		MsgType: "text",
		Content: LarkTextContent{Text: text},
	})
}

func (n *LarkNotifier) SendRichText(title string, content [][]LarkElement) error {
	if !n.enabled {
		return nil
	}
	return n.send(LarkMessage{
		MsgType: "post",
		Content: LarkPostContent{
			Post: LarkPost{
				EnUs: LarkPostLang{Title: title, Content: content},
			},
		},
	})
}

func (n *LarkNotifier) send(message LarkMessage) error {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	resp, err := n.client.Post(n.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func (n *LarkNotifier) stamp() []LarkElement {
	return []LarkElement{{Tag: "text", Text: fmt.Sprintf("Time: %s", n.now().Format("2006-01-02 15:04:05"))}}
}

// NotifyServiceStart announces which bucket the dashboard reads from.
func (n *LarkNotifier) NotifyServiceStart(bucket, resultsFile string) error {
	content := [][]LarkElement{
		{{Tag: "text", Text: "🚀 Dashboard started\n"}},
		{{Tag: "text", Text: fmt.Sprintf("Bucket: %s\n", bucket)}},
		{{Tag: "text", Text: fmt.Sprintf("Results file: %s\n", resultsFile)}},
		n.stamp(),
	}
	return n.SendRichText("MM Tips Dashboard Started", content)
}

// NotifyNewVersion reports a freshly downloaded object generation.
func (n *LarkNotifier) NotifyNewVersion(res FetchResult) error {
	content := [][]LarkElement{
		{{Tag: "text", Text: "📥 New file generation downloaded\n"}},
		{{Tag: "text", Text: fmt.Sprintf("Key: %s\n", res.Key)}},
		{{Tag: "text", Text: fmt.Sprintf("Version: %s\n", res.Tag)}},
		n.stamp(),
	}
	return n.SendRichText("Results Updated", content)
}

func (n *LarkNotifier) NotifyError(component, message string) error {
	content := [][]LarkElement{
		{{Tag: "text", Text: "❌ Error\n"}},
		{{Tag: "text", Text: fmt.Sprintf("Component: %s\n", component)}},
		{{Tag: "text", Text: fmt.Sprintf("Message: %s\n", message)}},
		n.stamp(),
	}
	return n.SendRichText("Error Alert", content)
}
