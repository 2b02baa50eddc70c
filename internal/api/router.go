/**
 * @description
 * This file sets up the HTTP router for the donation-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes creates and returns the router for the donation service.
func Routes(h *DonationHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwksURL))

		r.Route("/donations", func(r chi.Router) {
			r.Post("/", h.CreateDonationHandler)
			r.Get("/pending", h.ListPendingDonationsHandler)
			r.Get("/{donationID}", h.GetDonationHandler)
			r.Post("/{donationID}/proof", h.AttachProofHandler)
			r.Patch("/{donationID}/confirm", h.ConfirmDonationHandler)
			r.Patch("/{donationID}/reject", h.RejectDonationHandler)
		})

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.CreateCampaignHandler)
			r.Get("/{campaignID}", h.GetCampaignHandler)
			r.Patch("/{campaignID}/publish", h.PublishCampaignHandler)
			r.Patch("/{campaignID}/close", h.CloseCampaignHandler)
			r.Patch("/{campaignID}/archive", h.ArchiveCampaignHandler)
			r.Post("/{campaignID}/fund-usage", h.RecordFundUsageHandler)
			r.Get("/{campaignID}/fund-usage", h.ListFundUsageHandler)
			r.Post("/{campaignID}/reconcile", h.ReconcileCampaignHandler)
		})
	})

	return r
}
