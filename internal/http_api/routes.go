package http_api

// routes sets up the routes for the HTTP server.
func (s *HTTPServer) routes() {
	v1 := s.router.Group("/api/v1")

	v1.GET("/poller", s.pollerHealth)
	v1.GET("/watch", s.listWatches)
	v1.POST("/watch", s.addWatch)
	v1.DELETE("/watch", s.removeWatch)
	v1.GET("/activity", s.recentActivity)

	protected := v1.Group("", secretMiddleware(s.cronSecret, s.logger))
	protected.POST("/poller", s.poll)
	protected.POST("/notify/retry", s.retryNotifications)
}
