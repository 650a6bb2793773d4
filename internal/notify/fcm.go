package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
)

// TokenStore resolves a user to their registered push token.
type TokenStore interface {
	PushToken(ctx context.Context, userID string) (string, error)
}

// FCM dispatches push notifications through Firebase Cloud Messaging's
// HTTP v1 API. Failures are reported to the caller but are always
// best-effort from the message pipeline's point of view.
type FCM struct {
	projectID  string
	httpClient *http.Client
	creds      *google.Credentials
	tokens     TokenStore
}

type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification *fcmNotification  `json:"notification,omitempty"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`
}

type fcmAndroid struct {
	Priority string `json:"priority,omitempty"`
}

func NewFCM(projectID string, serviceAccountJSON []byte, tokens TokenStore) (*FCM, error) {
	creds, err := google.CredentialsFromJSON(context.Background(), serviceAccountJSON,
		"https://www.googleapis.com/auth/firebase.messaging",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create credentials: %w", err)
	}

	return &FCM{
		projectID:  projectID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		creds:      creds,
		tokens:     tokens,
	}, nil
}

// Dispatch sends a data push to the user's registered device. The event
// name rides in the data payload so the client can route it; the
// notification body stays generic to avoid leaking message content.
func (f *FCM) Dispatch(ctx context.Context, userID, event string, payload any) error {
	fcmToken, err := f.tokens.PushToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("no push target for %s: %w", userID, err)
	}

	data := map[string]string{"event": event}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		data["payload"] = string(raw)
	}

	req := fcmRequest{
		Message: fcmMessage{
			Token: fcmToken,
			Notification: &fcmNotification{
				Title: "worklink",
				Body:  "You have a new notification",
			},
			Data:    data,
			Android: &fcmAndroid{Priority: "high"},
		},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	token, err := f.creds.TokenSource.Token()
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	url := fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", f.projectID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token.AccessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("FCM returned status %d", resp.StatusCode)
	}

	return nil
}
