package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/tacticus-tools/tacticus-codes-bot/internal/config"
	"gopkg.in/gomail.v2"
)

// Service sends code notifications via ntfy push, desktop toast and an
// optional email channel. Channels are independent and best-effort: one
// failing never prevents the others from being attempted.
type Service struct {
	config *config.Config
	client *resty.Client
}

// Ensure Service implements Notifier
var _ Notifier = (*Service)(nil)

// NewService creates a new notification service.
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
	}
}

// NotifyCode delivers the code to every configured channel. The returned
// error joins the failures of the channels that did not deliver; nil means
// every configured channel delivered.
func (s *Service) NotifyCode(ctx context.Context, code string) error {
	var errors []string

	if err := s.sendPush(ctx, code); err != nil {
		logrus.Errorf("Failed to send push notification for %s: %v", code, err)
		errors = append(errors, fmt.Sprintf("push: %v", err))
	} else {
		logrus.Infof("Successfully sent push notification for %s", code)
	}

	if s.config.Notifications.DesktopEnabled {
		if err := s.sendDesktop(code); err != nil {
			logrus.Errorf("Failed to send desktop notification for %s: %v", code, err)
			errors = append(errors, fmt.Sprintf("desktop: %v", err))
		} else {
			logrus.Debugf("Sent desktop notification for %s", code)
		}
	}

	if s.config.Notifications.Email != nil {
		if err := s.sendEmail(code); err != nil {
			logrus.Errorf("Failed to send email notification for %s: %v", code, err)
			errors = append(errors, fmt.Sprintf("email: %v", err))
		} else {
			logrus.Infof("Successfully sent email notification for %s", code)
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors for %s: %s", code, strings.Join(errors, "; "))
	}

	return nil
}

func (s *Service) sendPush(ctx context.Context, code string) error {
	topicURL := s.config.Notifications.NtfyTopicURL
	if !strings.HasPrefix(topicURL, "http://") && !strings.HasPrefix(topicURL, "https://") {
		topicURL = "https://" + topicURL
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Title", s.config.Notifications.NtfyTitle).
		SetBody(code).
		Post(topicURL)

	if err != nil {
		return fmt.Errorf("failed to post to ntfy topic: %w", err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return nil
}

func (s *Service) sendDesktop(code string) error {
	return beeep.Notify(s.config.Notifications.NtfyTitle, code, "")
}

func (s *Service) sendEmail(code string) error {
	email := s.config.Notifications.Email

	m := gomail.NewMessage()
	m.SetHeader("From", email.SMTPUsername)
	m.SetHeader("To", email.To)
	m.SetHeader("Subject", fmt.Sprintf("%s %s", s.config.Notifications.NtfyTitle, code))
	m.SetBody("text/plain", fmt.Sprintf("A new code was confirmed: %s\n", code))

	d := gomail.NewDialer(email.SMTPHost, email.SMTPPort, email.SMTPUsername, email.SMTPPassword)

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}
