package main

import (
	"fmt"
	"log"

	"github.com/spf13/afero"

	"spot/api"
	"spot/config"
	"spot/internal/database"
	"spot/services/contact"
	"spot/services/discover"
	"spot/services/events"
	"spot/services/mail"
	"spot/services/newsletter"
	"spot/services/personalize"
	"spot/services/ticketmaster"
)

// app holds the wired services.
type app struct {
	cfg        *config.Config
	db         *database.DB
	aggregator *events.Aggregator
	discover   *discover.Service
	sessions   *discover.Sessions
	proxies    *api.TrustedProxies
	contact    *contact.Service
	newsletter *newsletter.Service
}

func newApp(cfg *config.Config, fs afero.Fs) (*app, error) {
	a := &app{cfg: cfg}

	proxies, err := api.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("server.trustedProxies: %w", err)
	}
	a.proxies = proxies

	tm := ticketmaster.NewClient(cfg.Ticketmaster.APIKey, cfg.Ticketmaster.BaseURL, cfg.Ticketmaster.Timeout, nil)
	if !tm.IsConfigured() {
		log.Printf("[spot] TICKETMASTER_API_KEY is not set; discovery will report not configured")
	}
	a.aggregator = events.NewAggregator(tm, events.Options{
		PageSize:       cfg.Ticketmaster.PageSize,
		MaxConcurrency: cfg.Ticketmaster.MaxConcurrency,
		DefaultCountry: cfg.Ticketmaster.DefaultCountry,
		CacheFS:        fs,
		CacheDir:       cfg.Cache.Dir,
		CacheTTL:       cfg.Cache.TTL,
	})

	completer := personalize.NewOpenAIClient(personalize.ChatConfig{
		APIKey:      cfg.OpenAI.APIKey,
		BaseURL:     cfg.OpenAI.BaseURL,
		Model:       cfg.OpenAI.Model,
		Temperature: cfg.OpenAI.Temperature,
		MaxTokens:   cfg.OpenAI.MaxTokens,
		Timeout:     cfg.OpenAI.Timeout,
	}, nil)
	a.discover = discover.NewService(a.aggregator, personalize.NewFilter(completer))
	a.sessions = discover.NewSessions(a.discover, cfg.Server.SessionIdle, cfg.Server.MaxSessions)

	mailer := mail.NewClient(cfg.Resend.APIKey, cfg.Resend.BaseURL, cfg.Resend.Timeout, nil)
	contactCfg := contact.Config{
		From:       cfg.Contact.From,
		AdminEmail: cfg.Contact.AdminEmail,
		SiteName:   cfg.Contact.SiteName,
		SiteURL:    cfg.Contact.SiteURL,
	}

	if cfg.Database.Path == "" {
		a.contact = contact.NewService(contactCfg, mailer, nil)
		a.newsletter = newsletter.NewService(cfg.Resend.AudienceID, mailer, nil)
		return a, nil
	}

	db, err := database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
	if err != nil {
		return nil, fmt.Errorf("open submissions ledger: %w", err)
	}
	a.db = db
	ledger := database.NewSubmissionRepository(db.Connection())
	a.contact = contact.NewService(contactCfg, mailer, ledger)
	a.newsletter = newsletter.NewService(cfg.Resend.AudienceID, mailer, ledger)
	return a, nil
}

func (a *app) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
