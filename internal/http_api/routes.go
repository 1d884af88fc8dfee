package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	v1 := s.router.Group("/api/v1")

	v1.POST("/auth/challenge", s.beginChallenge)
	v1.POST("/auth/login", s.login)
	v1.POST("/auth/register", s.register)
	v1.POST("/auth/register/begin", s.beginRegister)
	v1.POST("/auth/register/confirm", s.confirmRegister)
	v1.POST("/auth/logout", s.logout)
	v1.POST("/auth/password", s.updatePassword)
	v1.GET("/auth/user", s.currentUser)
	v1.POST("/auth/providers", s.addPaymentProvider)
	v1.POST("/auth/addresses", s.addTransactionAddress)

	v1.GET("/orders", s.listOrders)
	v1.POST("/orders", s.createOrder)
	v1.POST("/orders/:id/lock", s.lockOrder)
	v1.POST("/orders/:id/verify", s.verifyOrder)
	v1.POST("/orders/:id/cancel", s.cancelOrder)

	v1.POST("/vault/withdraw", s.withdrawDeposit)

	v1.GET("/balances", s.fetchBalances)
	v1.GET("/rates", s.getRate)

	v1.GET("/settings/currency", s.getPreferredCurrency)
	v1.PUT("/settings/currency", s.setPreferredCurrency)
}
