package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborcrm/esign/internal/attachments"
	"github.com/harborcrm/esign/internal/config"
	"github.com/harborcrm/esign/internal/esign"
	"github.com/harborcrm/esign/internal/finalize"
	"github.com/harborcrm/esign/internal/invites"
	"github.com/harborcrm/esign/internal/mail"
	"github.com/harborcrm/esign/pkg/db"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config failed", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect database failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	mailer, err := mail.New(ctx, cfg.AWSRegion, cfg.FromEmail, cfg.FromName, log)
	if err != nil {
		log.Error("init mailer failed", "error", err)
		os.Exit(1)
	}

	store := esign.NewStore(pool)
	attStore := attachments.NewStore(pool)

	finalizer := &finalize.Finalizer{
		Contracts:     store,
		Attachments:   attStore,
		Mailer:        mailer,
		PublicBaseURL: cfg.PublicBaseURL,
		Log:           log,
	}
	trigger := &esign.ExecutionTrigger{
		Store:           store,
		Finalizer:       finalizer,
		Policy:          esign.ExecutionPolicy(cfg.ExecutionPolicy),
		FinalizeTimeout: time.Duration(cfg.FinalizeTimeout) * time.Second,
		Log:             log,
	}

	signing := esign.NewHandler(store, trigger, log)
	attHandler := attachments.NewHandler(attStore, log)
	admin := &invites.Handler{
		Store:         store,
		Mailer:        mailer,
		PublicBaseURL: cfg.PublicBaseURL,
		InviteTTL:     time.Duration(cfg.InviteTTLHours) * time.Hour,
		OTPTTL:        time.Duration(cfg.OTPTTLMinutes) * time.Minute,
		DevExposeOTP:  cfg.DevExposeOTP,
		Log:           log,
	}

	otpByIP := esign.NewFixedWindowLimiter(cfg.OTPIPRatePerMinute, time.Minute)
	otpByToken := esign.NewFixedWindowLimiter(cfg.OTPTokenRatePerMinute, time.Minute)
	signByIP := esign.NewFixedWindowLimiter(cfg.SignIPRatePerMinute, time.Minute)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/esign/v1", func(api chi.Router) {
		api.Get("/sign/{token}", signing.GetInviteView)
		api.With(esign.RateLimitByIP(otpByIP), esign.RateLimitByToken(otpByToken)).
			Post("/sign/{token}/otp", signing.VerifyOTP)
		api.With(esign.RateLimitByIP(signByIP)).
			Post("/sign/{token}", signing.Sign)

		api.Get("/attachments/{contract_id}/{attachment_id}", attHandler.Resolve)

		api.Group(func(priv chi.Router) {
			priv.Use(invites.RequireAdmin(cfg.AdminToken, log))
			priv.Post("/contracts/{contract_id}/invites", admin.CreateInvite)
			priv.Get("/contracts/{contract_id}/audit", admin.GetAudit)
		})
	})

	addr := ":" + cfg.ServicePort
	log.Info("esign service listening", "addr", addr, "policy", cfg.ExecutionPolicy)
	if err := http.ListenAndServe(addr, r); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
