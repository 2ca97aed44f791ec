package routes

import (
	"github.com/campusarena/arena-system/handlers"
	"github.com/campusarena/arena-system/middleware"
	"github.com/campusarena/arena-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes собирает маршруты приложения.
// Просмотр матчей и раскладов публичный; всё, что меняет состояние,
// требует аутентификации, а жизненный цикл матча - роли администратора.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	matchHandler *handlers.MatchHandler,
	stakeHandler *handlers.StakeHandler,
	walletHandler *handlers.WalletHandler,
	notificationHandler *handlers.NotificationHandler,
	eventHandler *handlers.EventHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Route("/matches", func(r chi.Router) {
		// Публичные маршруты просмотра
		r.Get("/{matchID}", matchHandler.GetMatch)
		r.Get("/{matchID}/stats", matchHandler.GetMatchStats)
		r.Get("/{matchID}/stakes", matchHandler.ListMatchStakes)

		// Жизненный цикл матча - только администратор
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(adminOnly)

			r.Post("/", matchHandler.ScheduleMatch)
			r.Post("/{matchID}/start", matchHandler.StartMatch)
			r.Put("/{matchID}/score", matchHandler.UpdateScore)
			r.Post("/{matchID}/end", matchHandler.EndMatch)
			r.Post("/{matchID}/cancel", matchHandler.CancelMatch)
		})
	})

	router.Route("/events", func(r chi.Router) {
		r.Get("/", eventHandler.ListEvents)
		r.Get("/{eventID}", eventHandler.GetEvent)
		r.Get("/{eventID}/matches", matchHandler.ListEventMatches)
	})

	router.Route("/stakes", func(r chi.Router) {
		r.Use(authenticate)

		r.Post("/", stakeHandler.PlaceStake)
		r.Get("/my", stakeHandler.ListMyStakes)
	})

	router.Route("/transactions", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/my", walletHandler.ListMyTransactions)

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/adjust", walletHandler.AdjustPoints)
		})
	})

	router.Route("/notifications", func(r chi.Router) {
		r.Use(authenticate)

		r.Get("/my", notificationHandler.ListMyNotifications)
		r.Post("/{notificationID}/read", notificationHandler.MarkRead)
	})

	router.Get("/ws/events/{eventID}", webSocketHandler.ServeWs)
}
