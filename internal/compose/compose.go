// Package compose builds outbound messages from the recipient picker and the
// free-form number field.
package compose

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gsm-dashboard/internal/directory"
	"gsm-dashboard/internal/gateway"
)

// SegmentLength is the character count of one SMS shown by the counter.
const SegmentLength = 160

type Sender interface {
	SendMessage(ctx context.Context, req gateway.SendRequest) (gateway.SendResult, error)
}

type Draft struct {
	Selected []string `json:"recipients"`
	Manual   string   `json:"manual"`
	Message  string   `json:"message"`
	SendTime string   `json:"sendTime,omitempty"`
}

type Preview struct {
	Recipients []string `json:"recipients"`
	Length     int      `json:"length"`
	Counter    string   `json:"counter"`
}

// Recipients joins the picked phones with the comma-separated manual
// numbers, trimming each and dropping blanks. Order is kept.
func Recipients(selected []string, manual string) []string {
	out := make([]string, 0, len(selected))
	for _, phone := range selected {
		if phone = strings.TrimSpace(phone); phone != "" {
			out = append(out, phone)
		}
	}
	for _, phone := range strings.Split(manual, ",") {
		if phone = strings.TrimSpace(phone); phone != "" {
			out = append(out, phone)
		}
	}
	return out
}

func Counter(message string) string {
	return fmt.Sprintf("%d/%d", utf8.RuneCountInString(message), SegmentLength)
}

func (d Draft) Preview() Preview {
	return Preview{
		Recipients: Recipients(d.Selected, d.Manual),
		Length:     utf8.RuneCountInString(d.Message),
		Counter:    Counter(d.Message),
	}
}

// Request validates the draft and returns what the modem expects.
func (d Draft) Request() (gateway.SendRequest, error) {
	recipients := Recipients(d.Selected, d.Manual)
	if len(recipients) == 0 {
		return gateway.SendRequest{}, &directory.ValidationError{Field: "recipients", Message: "select at least one recipient"}
	}
	if strings.TrimSpace(d.Message) == "" {
		return gateway.SendRequest{}, &directory.ValidationError{Field: "message", Message: "message is empty"}
	}
	return gateway.SendRequest{
		Recipients: recipients,
		Message:    d.Message,
		SendTime:   strings.TrimSpace(d.SendTime),
	}, nil
}

// Send validates the draft and queues it on the modem. Nothing is sent when
// validation fails.
func Send(ctx context.Context, sender Sender, d Draft) (gateway.SendResult, error) {
	req, err := d.Request()
	if err != nil {
		return gateway.SendResult{}, err
	}
	return sender.SendMessage(ctx, req)
}
