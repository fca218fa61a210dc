// Package health provides liveness, readiness, and version endpoints.
//
// # Endpoints
//
//   - /health: Liveness probe, answers as long as the process runs
//   - /ready: Readiness probe, runs every registered check
//   - /version: Build information
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("registry", health.RegistryCheck(reg))
//	checker.RegisterCheck("entries", health.EntriesCheck(reg, configuredNames))
//
//	health.Register(mux, &cfg.Telemetry.Health, checker,
//	    health.NewVersionInfo(version, commit, buildTime), 0)
//
// The registry check fails once shutdown has begun, so load balancers stop
// routing to a draining process. The entries check fails while a configured
// resource is missing or failed its initial load.
package health
