package main

import (
	"net/http"

	"github.com/gorilla/mux"

	"spot/api"
	"spot/handlers"
	"spot/utils"
)

// newRouter registers every HTTP route. Rate limiters are returned so the
// caller can run their cleanup loops.
func newRouter(a *app) (*mux.Router, []*api.ClientRateLimiter) {
	r := utils.NewRouter(utils.NewOriginPolicy(a.cfg.Server.AllowedOrigins))

	versionHandler := handlers.NewVersionHandler()
	r.HandleFunc("/version", versionHandler.GetVersion).Methods(http.MethodGet)
	r.Handle("/fallback.jpg", handlers.NewStaticHandler()).Methods(http.MethodGet, http.MethodHead)

	discoverHandler := handlers.NewDiscoverHandler(a.sessions, a.cfg.Server.SearchTimeout)
	eventsHandler := handlers.NewEventsHandler(a.aggregator, nil)
	formsHandler := handlers.NewFormsHandler(a.contact, a.newsletter)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.RequestLogger(), api.RealIP(a.proxies), api.ClientIDMiddleware())

	rl := a.cfg.RateLimit
	discoverLimiter := api.PerMinute(rl.DiscoverPerMinute, rl.DiscoverBurst)
	apiRouter.Handle("/discover", api.RateLimit(discoverLimiter, "discover")(http.HandlerFunc(discoverHandler.Search))).
		Methods(http.MethodPost, http.MethodOptions)
	apiRouter.HandleFunc("/discover/state", discoverHandler.State).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/discover/state", discoverHandler.Reset).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/events", eventsHandler.List).Methods(http.MethodGet, http.MethodOptions)
	apiRouter.HandleFunc("/categories", eventsHandler.ListCategories).Methods(http.MethodGet, http.MethodOptions)

	contactLimiter := api.PerMinute(rl.FormsPerMinute, rl.FormsBurst)
	newsletterLimiter := api.PerMinute(rl.FormsPerMinute, rl.FormsBurst)
	apiRouter.Handle("/contact", api.RateLimit(contactLimiter, "contact")(http.HandlerFunc(formsHandler.SubmitContact))).
		Methods(http.MethodPost, http.MethodOptions)
	apiRouter.Handle("/newsletter", api.RateLimit(newsletterLimiter, "newsletter")(http.HandlerFunc(formsHandler.SubscribeNewsletter))).
		Methods(http.MethodPost, http.MethodOptions)

	return r, []*api.ClientRateLimiter{discoverLimiter, contactLimiter, newsletterLimiter}
}
