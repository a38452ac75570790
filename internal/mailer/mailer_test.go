package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"gymnet/go-api/internal/config"
	"gymnet/go-api/internal/reminder"
)

func testSMTP() config.SMTP {
	return config.SMTP{
		Host: "smtp.example.com",
		Port: 587,
		User: "mailer@example.com",
		Pass: "secret",
	}
}

func TestMealReminder_Render(t *testing.T) {
	subject, html, err := mealReminder(reminder.MealReminder{
		To:        "an@example.com",
		UserName:  "An",
		DateLabel: "20/10/2026",
		Time:      "07:30",
		MealName:  "Yến mạch",
	})
	require.NoError(t, err)

	assert.Equal(t, "Nhắc nhở bữa ăn Yến mạch lúc 07:30", subject)
	assert.Contains(t, html, "Xin chào An,")
	assert.Contains(t, html, "<strong>Yến mạch</strong>")
	assert.Contains(t, html, "<strong>20/10/2026</strong>")
	assert.Contains(t, html, "GymNet")
}

func TestExerciseReminder_Render(t *testing.T) {
	subject, html, err := exerciseReminder(reminder.ExerciseReminder{
		UserName:     "bạn",
		DateLabel:    "1/2/2026",
		Time:         "18:00",
		ExerciseName: "Squats",
	})
	require.NoError(t, err)

	assert.Equal(t, "Nhắc nhở tập luyện Squats lúc 18:00", subject)
	assert.Contains(t, html, "Bạn có lịch tập <strong>Squats</strong>")
	assert.Contains(t, html, "Chuẩn bị đồ tập")
}

func TestReminder_EscapesNames(t *testing.T) {
	_, html, err := mealReminder(reminder.MealReminder{UserName: "<b>x</b>", MealName: "a&b"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<b>x</b>")
	assert.Contains(t, html, "a&amp;b")
}

func TestSend_NotConfigured(t *testing.T) {
	m := New(config.SMTP{Port: 587}, zap.NewNop())
	called := false
	m.deliver = func(context.Context, *mail.Msg) error {
		called = true
		return nil
	}

	err := m.SendMealReminder(context.Background(), reminder.MealReminder{To: "an@example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.False(t, called)
}

func TestSend_Delivers(t *testing.T) {
	m := New(testSMTP(), zap.NewNop())
	var got *mail.Msg
	m.deliver = func(_ context.Context, msg *mail.Msg) error {
		got = msg
		return nil
	}

	err := m.SendExerciseReminder(context.Background(), reminder.ExerciseReminder{
		To: "an@example.com", ExerciseName: "Yoga", Time: "06:00",
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	rcpts, err := got.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"<an@example.com>"}, rcpts)
	to := got.GetTo()
	require.Len(t, to, 1)
	assert.Equal(t, "an@example.com", to[0].Address)
}

func TestSend_PropagatesDeliveryError(t *testing.T) {
	m := New(testSMTP(), zap.NewNop())
	boom := errors.New("connection refused")
	m.deliver = func(context.Context, *mail.Msg) error { return boom }

	err := m.Send(context.Background(), "an@example.com", "hi", "<p>hi</p>")
	assert.ErrorIs(t, err, boom)
}

func TestSend_InvalidRecipient(t *testing.T) {
	m := New(testSMTP(), zap.NewNop())
	m.deliver = func(context.Context, *mail.Msg) error {
		t.Fatal("should not deliver")
		return nil
	}

	err := m.Send(context.Background(), "not an address", "hi", "<p>hi</p>")
	assert.Error(t, err)
}
