package notify

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/zap"

	"airdrop-bot/internal/metrics"
)

// API is the slice of the Telegram send surface the notifier uses.
type API interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, caption string, photo []byte) error
}

// telegoAPI adapts *telego.Bot to API. Messages use HTML markup.
type telegoAPI struct {
	bot *telego.Bot
}

func NewTelegoAPI(bot *telego.Bot) API {
	return &telegoAPI{bot: bot}
}

func (a *telegoAPI) SendText(ctx context.Context, chatID int64, text string) error {
	_, err := a.bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text).WithParseMode(telego.ModeHTML))
	return err
}

func (a *telegoAPI) SendPhoto(ctx context.Context, chatID int64, caption string, photo []byte) error {
	params := tu.Photo(tu.ID(chatID), tu.File(tu.NameReader(bytes.NewReader(photo), "broadcast.jpg"))).
		WithCaption(caption).
		WithParseMode(telego.ModeHTML)
	_, err := a.bot.SendPhoto(ctx, params)
	return err
}

type job struct {
	chatID int64
	text   string
}

// Notifier delivers fire-and-forget messages through a bounded worker pool.
// Enqueueing never blocks the caller; a full queue drops the message.
type Notifier struct {
	api            API
	jobs           chan job
	wg             sync.WaitGroup
	broadcastDelay time.Duration
	log            *zap.Logger
}

func NewNotifier(api API, workers, queueSize int, broadcastDelay time.Duration, log *zap.Logger) *Notifier {
	if workers < 1 {
		workers = 1
	}
	n := &Notifier{
		api:            api,
		jobs:           make(chan job, queueSize),
		broadcastDelay: broadcastDelay,
		log:            log,
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
	return n
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for j := range n.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := n.api.SendText(ctx, j.chatID, j.text); err != nil {
			n.log.Warn("notification send failed",
				zap.Int64("chat_id", j.chatID),
				zap.Error(err))
		}
		cancel()
	}
}

// Notify enqueues a message. A failed or dropped notification is logged and
// counted; it never surfaces to the flow that triggered it.
func (n *Notifier) Notify(chatID int64, text string) {
	select {
	case n.jobs <- job{chatID: chatID, text: text}:
	default:
		metrics.NotificationsDroppedTotal.Inc()
		n.log.Warn("notification queue full, dropping message",
			zap.Int64("chat_id", chatID))
	}
}

// Close stops accepting work and waits for the workers to drain the queue.
func (n *Notifier) Close() {
	close(n.jobs)
	n.wg.Wait()
}

// Report is the aggregate outcome of one broadcast.
type Report struct {
	ID       string `json:"id"`
	Total    int    `json:"total"`
	Sent     int    `json:"sent"`
	Failed   int    `json:"failed"`
	Finished bool   `json:"finished"`
}

// NewBroadcastID mints an id callers can hand out before the broadcast runs.
func NewBroadcastID() string {
	return uuid.New().String()
}

// Broadcast fans a message out to every id sequentially, pausing the
// configured delay between sends to stay under the platform rate limit.
// Failures are counted and skipped, never retried; the broadcast always
// runs to completion. A non-nil photo is sent with the message as caption.
func (n *Notifier) Broadcast(ctx context.Context, id string, ids []int64, text string, photo []byte) Report {
	report := Report{ID: id, Total: len(ids)}

	for i, chatID := range ids {
		var err error
		if photo != nil {
			err = n.api.SendPhoto(ctx, chatID, text, photo)
		} else {
			err = n.api.SendText(ctx, chatID, text)
		}
		if err != nil {
			report.Failed++
			metrics.BroadcastMessagesTotal.WithLabelValues("failed").Inc()
			n.log.Warn("broadcast send failed",
				zap.String("broadcast_id", report.ID),
				zap.Int64("chat_id", chatID),
				zap.Error(err))
		} else {
			report.Sent++
			metrics.BroadcastMessagesTotal.WithLabelValues("sent").Inc()
		}

		if i < len(ids)-1 && n.broadcastDelay > 0 {
			time.Sleep(n.broadcastDelay)
		}
	}

	report.Finished = true
	n.log.Info("broadcast completed",
		zap.String("broadcast_id", report.ID),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed))
	return report
}
