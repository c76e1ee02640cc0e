package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	walog "go.mau.fi/whatsmeow/util/log"
	"go.uber.org/zap"

	"github.com/fardannozami/flowcare/internal/app/usecase"
	"github.com/fardannozami/flowcare/internal/infra/wa"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Serve chat commands over WhatsApp and deliver due reminders",
	Long: `Connects to WhatsApp and answers #start, #end, #log, #predict, #symptoms,
#remind and #prefs messages. Due reminders are delivered on DISPATCH_SCHEDULE.

When the device is not linked yet the bot prints a pair code for BOT_PHONE,
or a QR code when BOT_PHONE is empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runBot(ctx)
	},
}

var remindersDispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Deliver due reminders once",
	Long: `Delivers every unsent reminder due at --as-of. Reminders are printed to
stdout unless --whatsapp is set, in which case the linked WhatsApp device
sends them to each user's phone number.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asOf, err := parseAsOf(remindersAsOf)
		if err != nil {
			return err
		}

		var notifier usecase.Notifier = writerNotifier{w: cmd.OutOrStdout()}
		if dispatchWhatsApp {
			svc := wa.NewService(cfg.WASessionPath, walog.Stdout("Client", "WARN", true))
			if err := svc.Initialize(cmd.Context()); err != nil {
				return err
			}
			if !svc.IsLoggedIn() {
				return fmt.Errorf("whatsapp device is not linked, run the bot first")
			}
			if err := svc.Connect(); err != nil {
				return err
			}
			defer svc.Disconnect()
			notifier = svc
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			report, err := usecase.NewDispatchRemindersUsecase(a.store, notifier, logger).Execute(ctx, asOf)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), report, textLine("%d due, %d sent, %d failed", report.Due, report.Sent, report.Failed))
		})
	},
}

var dispatchWhatsApp bool

func init() {
	remindersDispatchCmd.Flags().BoolVar(&dispatchWhatsApp, "whatsapp", false, "Deliver through the linked WhatsApp device")
}

// writerNotifier prints reminders instead of sending them.
type writerNotifier struct {
	w io.Writer
}

func (n writerNotifier) Notify(ctx context.Context, userID, message string) error {
	_, err := fmt.Fprintf(n.w, "%s: %s\n", userID, message)
	return err
}

func runBot(ctx context.Context) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	a := newApp(store, logger)

	waService := wa.NewService(cfg.WASessionPath, walog.Stdout("Client", "INFO", true))
	waService.SetMessageHandler(func(ctx context.Context, in wa.Inbound) {
		if cfg.GroupID != "" && in.Chat.String() != cfg.GroupID {
			return
		}
		log := logger.With(zap.String("user", in.UserID), zap.String("chat", in.Chat.String()))
		log.Debug("message received", zap.String("text", in.Text))

		opCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		response, err := a.handler.Execute(opCtx, in.UserID, in.PushName, in.Text)
		cancel()
		if err != nil {
			log.Error("failed to handle message", zap.Error(err))
			return
		}
		if response == "" {
			return
		}

		if delay := replyDelay(cfg.ReplyDelayMinMs, cfg.ReplyDelayMaxMs); delay > 0 {
			if cfg.ShowTyping {
				waService.SetTyping(ctx, in.Chat, true)
			}
			log.Debug("delaying reply", zap.Duration("delay", delay))
			time.Sleep(delay)
			if cfg.ShowTyping {
				waService.SetTyping(ctx, in.Chat, false)
			}
		}

		if err := waService.SendText(ctx, in.Chat, response); err != nil {
			log.Error("failed to send response", zap.Error(err))
		}
	})

	// Initialize before connecting so the QR channel can be requested first.
	if err := waService.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize WhatsApp service: %w", err)
	}
	if err := login(ctx, waService); err != nil {
		return err
	}
	defer waService.Disconnect()

	dispatcher := usecase.NewDispatchRemindersUsecase(store, waService, logger)
	c := cron.New()
	if _, err := c.AddFunc(cfg.DispatchSchedule, func() {
		runCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		report, err := dispatcher.Execute(runCtx, time.Now().UTC())
		if err != nil {
			logger.Error("reminder dispatch failed", zap.Error(err))
			return
		}
		if report.Due > 0 {
			logger.Info("reminders dispatched", zap.Int("due", report.Due), zap.Int("sent", report.Sent), zap.Int("failed", report.Failed))
		}
	}); err != nil {
		return fmt.Errorf("invalid DISPATCH_SCHEDULE %q: %w", cfg.DispatchSchedule, err)
	}
	c.Start()

	logger.Info("bot is running", zap.String("dispatch_schedule", cfg.DispatchSchedule))
	<-ctx.Done()

	logger.Info("shutting down")
	<-c.Stop().Done()
	return nil
}

func login(ctx context.Context, svc *wa.Service) error {
	if svc.IsLoggedIn() {
		if err := svc.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		logger.Info("client is already logged in")
		return nil
	}

	if cfg.BotPhone == "" {
		logger.Info("not logged in and BOT_PHONE not set, printing QR")
		return svc.PrintQR(ctx)
	}

	// Pairing needs a live connection.
	if err := svc.Connect(); err != nil {
		return fmt.Errorf("failed to connect for pairing: %w", err)
	}
	code, err := svc.Pair(ctx, cfg.BotPhone)
	if err != nil {
		logger.Error("failed to generate pair code", zap.Error(err))
		return nil
	}
	fmt.Println("==================================================")
	fmt.Printf("PAIR CODE: %s\n", code)
	fmt.Println("==================================================")
	fmt.Println("Verify this code on your WhatsApp (Linked Devices > Link with phone number)")
	return nil
}

// replyDelay picks a random delay in [min, max]. A max at or below min gives
// the fixed min delay.
func replyDelay(minMs, maxMs int) time.Duration {
	ms := minMs
	if maxMs > minMs {
		ms = minMs + rand.Intn(maxMs-minMs+1)
	}
	if ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
