// Package api serves the read-only MarketSync query API over the projected
// marketplace requests and offers.
//
// Routes:
//
//	GET /health
//	GET /api/v1/cursor
//	GET /api/v1/requests
//	GET /api/v1/requests/{requestId}
//	GET /api/v1/requests/{requestId}/offers
//	GET /api/v1/offers
//	GET /api/v1/offers/{offerId}
//	GET /swagger/
//
// @title MarketSync API
// @version 1.0
// @description Read-only API over marketplace requests and offers projected by MarketSync
// @contact.name API Support
// @contact.url https://github.com/goran-ethernal/MarketSync
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html
// @basePath /
// @schemes http https
package api
