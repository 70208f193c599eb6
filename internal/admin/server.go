package admin

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"airdrop-bot/internal/ledger"
	"airdrop-bot/internal/models"
	"airdrop-bot/internal/notify"
)

// Broadcaster fans a message out to a list of recipients. *notify.Notifier
// satisfies it.
type Broadcaster interface {
	Broadcast(ctx context.Context, id string, ids []int64, text string, photo []byte) notify.Report
}

// Server is the operator console: read-only dashboards, CSV export and the
// broadcast trigger.
type Server struct {
	e           *echo.Echo
	ledger      ledger.Ledger
	broadcaster Broadcaster
	log         *zap.Logger

	mu      sync.RWMutex
	reports map[string]notify.Report
}

func NewServer(l ledger.Ledger, b Broadcaster, log *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	s := &Server{
		e:           e,
		ledger:      l,
		broadcaster: b,
		log:         log,
		reports:     make(map[string]notify.Report),
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	})

	api := e.Group("/api")
	api.GET("/stats", s.stats)
	api.GET("/users", s.users)
	api.GET("/users/:id", s.userDetail)
	api.POST("/broadcast", s.broadcast)
	api.GET("/broadcasts/:id", s.broadcastReport)
	api.GET("/export.csv", s.exportCSV)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return s
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) stats(c echo.Context) error {
	totals, err := s.ledger.Totals(c.Request().Context())
	if err != nil {
		s.log.Error("failed to load totals", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load stats"})
	}
	return c.JSON(http.StatusOK, totals)
}

func (s *Server) users(c echo.Context) error {
	limit := 10
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = parsed
	}

	users, err := s.ledger.RecentUsers(c.Request().Context(), limit)
	if err != nil {
		s.log.Error("failed to list users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
	}
	return c.JSON(http.StatusOK, users)
}

func (s *Server) userDetail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid user id"})
	}

	ctx := c.Request().Context()
	user, err := s.ledger.GetOrNone(ctx, id)
	if err != nil {
		s.log.Error("failed to load user", zap.Int64("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load user"})
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "user not found"})
	}

	referrals, err := s.ledger.ReferralsOf(ctx, id)
	if err != nil {
		s.log.Error("failed to load referrals", zap.Int64("user_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to load referrals"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":      user,
		"referrals": referrals,
	})
}

// broadcast accepts a multipart form with a required "message" field and an
// optional "image" file, and fans the message out to every stored user in
// the background. It answers immediately with the broadcast id.
func (s *Server) broadcast(c echo.Context) error {
	message := strings.TrimSpace(c.FormValue("message"))
	if message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message cannot be empty"})
	}

	var photo []byte
	if fileHeader, err := c.FormFile("image"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read image"})
		}
		defer file.Close()
		photo, err = io.ReadAll(file)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read image"})
		}
	}

	ids, err := s.ledger.UserIDs(c.Request().Context())
	if err != nil {
		s.log.Error("failed to list user ids", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
	}
	if len(ids) == 0 {
		return c.JSON(http.StatusConflict, map[string]string{"error": "no users to send to"})
	}

	text := fmt.Sprintf("📢 <b>ANNOUNCEMENT</b> 📢\n\n%s", message)
	id := notify.NewBroadcastID()

	s.mu.Lock()
	s.reports[id] = notify.Report{ID: id, Total: len(ids)}
	s.mu.Unlock()

	// The broadcast runs to completion in the background; there is no
	// cancellation once started.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
		defer cancel()
		report := s.broadcaster.Broadcast(ctx, id, ids, text, photo)
		s.mu.Lock()
		s.reports[id] = report
		s.mu.Unlock()
	}()

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"id":         id,
		"recipients": len(ids),
	})
}

func (s *Server) broadcastReport(c echo.Context) error {
	s.mu.RLock()
	report, ok := s.reports[c.Param("id")]
	s.mu.RUnlock()
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "broadcast not found"})
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) exportCSV(c echo.Context) error {
	users, err := s.ledger.AllUsers(c.Request().Context())
	if err != nil {
		s.log.Error("failed to export users", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to export users"})
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename=bot_users.csv`)
	c.Response().WriteHeader(http.StatusOK)

	w := csv.NewWriter(c.Response())
	if err := w.Write([]string{
		"telegram_id", "username", "full_name", "balance", "referral_count",
		"wallet_address", "referrer_id", "start_count", "joined_at",
	}); err != nil {
		return err
	}
	for _, u := range users {
		if err := w.Write(csvRow(u)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func csvRow(u models.User) []string {
	referrer := ""
	if u.ReferrerID != nil {
		referrer = strconv.FormatInt(*u.ReferrerID, 10)
	}
	return []string{
		strconv.FormatInt(u.TelegramID, 10),
		u.Username,
		u.FullName,
		strconv.FormatFloat(u.Balance, 'f', 2, 64),
		strconv.Itoa(u.ReferralCount),
		u.WalletAddress,
		referrer,
		strconv.Itoa(u.StartCount),
		u.JoinedAt.Format(time.RFC3339),
	}
}
