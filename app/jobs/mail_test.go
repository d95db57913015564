package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/jobs"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/mail"
	"github.com/developlogy/sitebuilder/pkg/queue"
)

func logSender(t *testing.T) *mail.LogSender {
	t.Helper()
	logger.Discard()
	s := mail.NewLogSender()
	mail.SetDefault(s)
	t.Cleanup(func() { mail.SetDefault(nil) })
	return s
}

func TestSendMagicLink(t *testing.T) {
	sender := logSender(t)
	job := &jobs.SendMagicLink{
		Email:     "owner@example.com",
		Link:      "https://app.example.test/auth/verify?token=abc.def",
		Code:      "042137",
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}

	require.NoError(t, job.Handle(context.Background()))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"owner@example.com"}, sent[0].To)
	assert.Contains(t, sent[0].Body, "https://app.example.test/auth/verify?token=abc.def")
	assert.Contains(t, sent[0].Body, "042137")
	assert.True(t, sent[0].HTML)
}

func TestSendOrderReceipt(t *testing.T) {
	sender := logSender(t)
	job := &jobs.SendOrderReceipt{
		OrderID:       "order_1",
		SiteName:      "Spice Route",
		CustomerName:  "Asha <Rao>",
		CustomerEmail: "asha@example.com",
		Items: []jobs.ReceiptLine{
			{Name: "Masala Chai", Quantity: 2, Price: decimal.RequireFromString("29.99")},
		},
		Total:         decimal.RequireFromString("59.98"),
		TransactionID: "txn_1",
	}

	require.NoError(t, job.Handle(context.Background()))

	sent := sender.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Your order from Spice Route", sent[0].Subject)
	assert.Contains(t, sent[0].Body, "$59.98")
	assert.Contains(t, sent[0].Body, "Asha &lt;Rao&gt;")
}

func TestJobsRoundTripThroughQueue(t *testing.T) {
	sender := logSender(t)
	driver := queue.NewMemoryDriver(4)
	m := queue.NewManager(driver)
	jobs.Register(m)

	ctx := context.Background()
	require.NoError(t, m.Dispatch(ctx, &jobs.SendMagicLink{Email: "owner@example.com", Link: "https://x.test", Code: "123456"}))

	raw, err := driver.Pop(ctx)
	require.NoError(t, err)
	m.Process(ctx, raw)

	require.Len(t, sender.Sent(), 1)
	assert.Empty(t, m.FailedJobs())
}
