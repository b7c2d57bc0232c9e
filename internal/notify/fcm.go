package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/option"
)

// fcmSendLimit bounds concurrent messages:send calls for one fan-out.
const fcmSendLimit = 8

// FCMDispatcher delivers through the Firebase Cloud Messaging HTTP v1 API.
// FCM v1 has no multicast, so each token is one request.
type FCMDispatcher struct {
	messages *fcm.ProjectsMessagesService
	parent   string
	logger   *slog.Logger
}

// FCMCredentialsFile returns the client options for a service-account key file.
// An empty path means Application Default Credentials.
func FCMCredentialsFile(path string) []option.ClientOption {
	if path == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(path)}
}

// NewFCMDispatcher creates a dispatcher for the given Firebase project.
func NewFCMDispatcher(ctx context.Context, projectID string, opts []option.ClientOption) (*FCMDispatcher, error) {
	if projectID == "" {
		return nil, fmt.Errorf("fcm: project id is required")
	}

	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fcm: create service: %w", err)
	}

	return &FCMDispatcher{
		messages: svc.Projects.Messages,
		parent:   "projects/" + projectID,
		logger:   slog.Default().With("dispatcher", DriverFCM),
	}, nil
}

// Send delivers msg to each token. Failed tokens are logged and counted; an
// error is returned only if no token was delivered.
func (d *FCMDispatcher) Send(ctx context.Context, msg Message) (Result, error) {
	if len(msg.Tokens) == 0 {
		return Result{}, ErrNoTokens
	}

	var (
		sent, failed atomic.Int64
		mu           sync.Mutex
		firstErr     error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fcmSendLimit)
	for _, token := range msg.Tokens {
		g.Go(func() error {
			req := &fcm.SendMessageRequest{
				Message: &fcm.Message{
					Token: token,
					Notification: &fcm.Notification{
						Title: msg.Title,
						Body:  msg.Body,
					},
					Data: msg.Data,
				},
			}
			if _, err := d.messages.Send(d.parent, req).Context(gctx).Do(); err != nil {
				failed.Add(1)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				d.logger.WarnContext(ctx, "FCM send failed", "error", err)
				return nil // one bad token must not cancel the rest
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Sent: int(sent.Load()), Failed: int(failed.Load())}
	if res.Sent == 0 {
		return res, fmt.Errorf("fcm: all %d sends failed: %w", res.Failed, firstErr)
	}
	return res, nil
}
