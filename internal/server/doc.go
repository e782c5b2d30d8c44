// Package server exposes the race store over HTTP.
//
// # Routes
//
// All race routes are mounted under APIPrefix (/races/api/v1):
//
//	GET    /races?archived=true      list active (default) or archived races
//	GET    /races/{raceID}           one race, active first then archived
//	POST   /races                    create (201, 409 when present)
//	PUT    /races/{raceID}           replace or rename (204)
//	DELETE /races/{raceID}           delete (204)
//	POST   /races/{raceID}/archive   active -> archived (200)
//	POST   /races/{raceID}/restore   archived -> active (201)
//	POST   /legs                     create a race from a published leg (201)
//
// Plus /health, /health/ready and, when enabled, the metrics path.
//
// # Errors
//
// Store errors map onto 404 (not found), 409 (already exists), 400 (identifier missing or
// invalid) and 500 (anything else). Bodies are {"error": "..."}; internal failures never
// leak their cause to the client.
//
// # Authentication
//
// When Deps.Verifier is set, every mutating route requires a bearer JWT (see package auth).
// Pass a nil interface, not a typed nil pointer, to leave them open.
package server
