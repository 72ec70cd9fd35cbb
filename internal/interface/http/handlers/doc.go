// Package handlers contains reusable HTTP building blocks.
//
// This package provides:
//   - A composite health checker that runs named checks in parallel
//   - Admin key authentication verified against a bcrypt hash
//
// # Health Checks
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("progress_store", handlers.NewPingCheck(store))
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    log.Printf("Health check failed: %s", status.Message)
//	}
//
// # Admin Routes
//
//	auth := handlers.NewAdminKeyAuth(cfg.HTTP.AdminAPIKeyHash)
//	r.With(auth.Middleware(deny)).Delete("/learners/{id}/progress", reset)
//
// The key is sent in the X-API-Key header or as an Authorization bearer.
package handlers
