package main

import (
	_ "invoicegen/api/swagger" // swagger docs
)

// @title           Invoicing API
// @version         1.0
// @description     Multi-tenant invoicing: businesses, clients, invoices, payments and plan quotas.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	Execute()
}
