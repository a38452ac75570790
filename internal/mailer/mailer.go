// Package mailer delivers reminder emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"sync"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"gymnet/go-api/internal/config"
	"gymnet/go-api/internal/reminder"
)

// ErrNotConfigured is returned by Send when SMTP_HOST, SMTP_PORT, SMTP_USER
// or SMTP_PASS is missing.
var ErrNotConfigured = errors.New("smtp configuration is missing: set SMTP_HOST, SMTP_PORT, SMTP_USER, SMTP_PASS")

var (
	mealBody = template.Must(template.New("meal").Parse(`
<h2>Xin chào {{.UserName}},</h2>
<p>Bạn có kế hoạch ăn <strong>{{.MealName}}</strong> vào lúc <strong>{{.Time}}</strong> ngày <strong>{{.DateLabel}}</strong>.</p>
<p>Nhớ chuẩn bị trước để đảm bảo dinh dưỡng nhé!</p>
<p>Chúc bạn một ngày tốt lành!</p>
<p>GymNet</p>
`))

	exerciseBody = template.Must(template.New("exercise").Parse(`
<h2>Xin chào {{.UserName}},</h2>
<p>Bạn có lịch tập <strong>{{.ExerciseName}}</strong> vào lúc <strong>{{.Time}}</strong> ngày <strong>{{.DateLabel}}</strong>.</p>
<p>Chuẩn bị đồ tập và khởi động nhẹ để đạt hiệu quả tốt nhất!</p>
<p>Chúc bạn một ngày tốt lành!</p>
<p>GymNet</p>
`))
)

// Mailer implements reminder.Notifier. The SMTP client is built on the first
// send and reused afterwards.
type Mailer struct {
	cfg config.SMTP
	log *zap.Logger

	mu      sync.Mutex
	client  *mail.Client
	deliver func(ctx context.Context, msg *mail.Msg) error
}

var _ reminder.Notifier = (*Mailer)(nil)

func New(cfg config.SMTP, log *zap.Logger) *Mailer {
	m := &Mailer{cfg: cfg, log: log.Named("mailer")}
	m.deliver = m.dialAndSend
	return m
}

// Send delivers one HTML message. Failures are logged and returned.
func (m *Mailer) Send(ctx context.Context, to, subject, html string) error {
	if !m.cfg.Configured() {
		return ErrNotConfigured
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.Sender()); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	if err := m.deliver(ctx, msg); err != nil {
		m.log.Error("failed to send mail",
			zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return err
	}
	m.log.Info("sent mail", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func (m *Mailer) SendMealReminder(ctx context.Context, r reminder.MealReminder) error {
	subject, html, err := mealReminder(r)
	if err != nil {
		return err
	}
	return m.Send(ctx, r.To, subject, html)
}

func (m *Mailer) SendExerciseReminder(ctx context.Context, r reminder.ExerciseReminder) error {
	subject, html, err := exerciseReminder(r)
	if err != nil {
		return err
	}
	return m.Send(ctx, r.To, subject, html)
}

func mealReminder(r reminder.MealReminder) (subject, html string, err error) {
	var buf bytes.Buffer
	if err := mealBody.Execute(&buf, r); err != nil {
		return "", "", fmt.Errorf("render meal reminder: %w", err)
	}
	return fmt.Sprintf("Nhắc nhở bữa ăn %s lúc %s", r.MealName, r.Time), buf.String(), nil
}

func exerciseReminder(r reminder.ExerciseReminder) (subject, html string, err error) {
	var buf bytes.Buffer
	if err := exerciseBody.Execute(&buf, r); err != nil {
		return "", "", fmt.Errorf("render exercise reminder: %w", err)
	}
	return fmt.Sprintf("Nhắc nhở tập luyện %s lúc %s", r.ExerciseName, r.Time), buf.String(), nil
}

func (m *Mailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	client, err := m.smtpClient()
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

func (m *Mailer) smtpClient() (*mail.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		return m.client, nil
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.cfg.User),
		mail.WithPassword(m.cfg.Pass),
	}
	if m.cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	m.client = client
	return client, nil
}
