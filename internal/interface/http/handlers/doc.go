// Package handlers contains reusable HTTP building blocks for the classroom
// API: health checks and middleware.
//
// # Health Checks
//
// Checks run in parallel, each under its own timeout. A failing critical
// check marks the service unhealthy; a failing optional check only marks it
// degraded:
//
//	checker := handlers.NewCompositeHealthChecker("v1.0.0")
//	checker.AddCheck("store", handlers.NewPingCheck(container))
//	checker.AddOptionalCheck("cache", handlers.NewPingCheck(redisCache))
//
//	status := checker.Check(ctx)
//
// # Teacher Passcode
//
// Mutating routes are wrapped with PasscodeAuth. The configured value is a
// bcrypt hash produced by HashPasscode; requests carry the plain passcode in
// the X-Teacher-Passcode header:
//
//	auth := handlers.NewPasscodeAuth(cfg.TeacherPasscodeHash)
//	mux.Handle("DELETE /api/v1/data", auth.Middleware(clearAll))
//
// # Middleware Chain
//
//	chain := handlers.Chain(
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(8<<20),
//	)
//	handler := chain(mux)
package handlers
