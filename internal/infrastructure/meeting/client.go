package meeting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Client создаёт видеовстречи для занятий через внешний сервис календаря.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт экземпляр клиента.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type createMeetingRequest struct {
	ScheduleID uuid.UUID `json:"schedule_id"`
}

type createMeetingResponse struct {
	Link    string `json:"link"`
	EventID string `json:"event_id"`
}

// CreateMeetingForSchedule возвращает ссылку на встречу и id события календаря.
func (c *Client) CreateMeetingForSchedule(ctx context.Context, scheduleID uuid.UUID) (string, string, error) {
	body, err := json.Marshal(createMeetingRequest{ScheduleID: scheduleID})
	if err != nil {
		return "", "", fmt.Errorf("meeting: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/meetings", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("meeting: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("meeting: create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", "", statusError("create", resp)
	}

	var out createMeetingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("meeting: decode response: %w", err)
	}
	if out.Link == "" || out.EventID == "" {
		return "", "", fmt.Errorf("meeting: пустой ответ провайдера")
	}
	return out.Link, out.EventID, nil
}

// DeleteMeeting удаляет событие. Уже удалённое событие не считается ошибкой.
func (c *Client) DeleteMeeting(ctx context.Context, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/meetings/"+url.PathEscape(eventID), nil)
	if err != nil {
		return fmt.Errorf("meeting: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("meeting: delete: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return statusError("delete", resp)
	}
}

func statusError(op string, resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("meeting: %s: статус %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
}

// Noop используется, когда MEETING_BASE_URL не задан: занятия создаются без ссылки.
type Noop struct{}

func (Noop) CreateMeetingForSchedule(context.Context, uuid.UUID) (string, string, error) {
	return "", "", nil
}

func (Noop) DeleteMeeting(context.Context, string) error { return nil }
