package main

// @title Course Settlement API
// @version 1.0
// @description Refund processing and instructor settlement for the course marketplace
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@example.com

// @license.name MIT

// @host localhost:8084
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @tag.name Refunds
// @tag.description Buyer refund requests

// @tag.name Settlements
// @tag.description Instructor ledger, eligibility sweep and payouts

// @tag.name Health
// @tag.description Health check endpoints
