package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/launchbase-io/launchbase-backend/api/controllers"
	"github.com/launchbase-io/launchbase-backend/api/controllers/webhooks"
	"github.com/launchbase-io/launchbase-backend/api/middleware"
	"github.com/launchbase-io/launchbase-backend/pkg/auth/session"
	"github.com/launchbase-io/launchbase-backend/pkg/config"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
	pkgredis "github.com/launchbase-io/launchbase-backend/pkg/redis"
)

var authRefreshPolicy = middleware.RateLimitPolicy{
	Scope:  "auth_refresh",
	Limit:  30,
	Window: time.Minute,
}

// Params carries everything the router mounts.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *pkgredis.Client
	Sessions    session.AccessSessionChecker
	Memberships middleware.MembershipChecker
	Registry    *prometheus.Registry

	Health        *controllers.HealthController
	Plans         *controllers.PlansController
	Session       *controllers.SessionController
	Organizations *controllers.OrganizationsController
	Billing       *controllers.BillingController
	Webhooks      *webhooks.LemonSqueezyController
}

// New assembles the HTTP surface. Webhooks and the plan catalog stay public;
// everything under /api/v1/organization requires a valid session.
func New(p Params) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer(p.Logger))
	r.Use(middleware.RequestID(p.Logger))
	r.Use(middleware.Logging(p.Logger))
	r.Use(middleware.CORS())

	r.Get("/health/live", p.Health.Live)
	r.Get("/health/ready", p.Health.Ready)

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	var limiter middleware.FixedWindowFunc
	if p.Redis != nil {
		limiter = p.Redis.FixedWindowAllow
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/lemonsqueezy", p.Webhooks.Handle)
		r.Get("/plans", p.Plans.List)

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(limiter, authRefreshPolicy, p.Logger)).
				Post("/refresh", p.Session.Refresh)
			r.Post("/logout", p.Session.Logout)
		})

		r.Route("/organization", func(r chi.Router) {
			r.Use(middleware.Auth(p.Config.JWT, p.Sessions, p.Logger))
			r.Use(middleware.Idempotency(p.Redis, p.Logger))

			r.Get("/", p.Organizations.Profile)
			r.Get("/members", p.Organizations.Members)
			r.Get("/billing/subscription", p.Billing.Subscription)

			manage := middleware.RequireOrganizationRoles(p.Memberships, p.Logger, enums.MemberRoleOwner, enums.MemberRoleAdmin)
			r.With(manage).Patch("/", p.Organizations.Update)
			r.With(manage).Post("/members/invite", p.Organizations.Invite)
			r.With(manage).Patch("/members/{membershipID}", p.Organizations.UpdateMemberRole)
			r.With(manage).Delete("/members/{membershipID}", p.Organizations.RemoveMember)

			ownerOnly := middleware.RequireOrganizationRoles(p.Memberships, p.Logger, enums.MemberRoleOwner)
			r.With(ownerOnly).Delete("/", p.Organizations.Delete)

			billing := middleware.RequireOrganizationRoles(p.Memberships, p.Logger, middleware.BillingRoles()...)
			r.With(billing).Post("/billing/checkout", p.Billing.Checkout)
			r.With(billing).Post("/billing/subscription/update", p.Billing.ChangePlan)
			r.With(billing).Post("/billing/subscription/cancel", p.Billing.Cancel)
			r.With(billing).Post("/billing/subscription/resume", p.Billing.Resume)
		})
	})

	return r
}
