package server

// RegisterGameRoutes registers routes for the instant-play mini games.
func (s *FiberServer) RegisterGameRoutes() {
	api := s.App.Group("/api/v1")

	// Limbo game routes
	limbo := api.Group("/limbo")
	limbo.Post("/roll", s.limboRollHandler)

	// Wheel game routes
	wheel := api.Group("/wheel")
	wheel.Get("/layout", s.wheelLayoutHandler)
	wheel.Post("/spin", s.wheelSpinHandler)

	// Coin flip routes
	coinflip := api.Group("/coinflip")
	coinflip.Post("/flip", s.coinFlipHandler)

	// Slots routes
	slots := api.Group("/slots")
	slots.Post("/spin", s.slotSpinHandler)
}
