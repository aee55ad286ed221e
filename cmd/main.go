package main

import (
	"fmt"
	"log"
	"os"

	"karaoke_party/internal/auth"
	"karaoke_party/internal/handlers"
	"karaoke_party/internal/models"
	"karaoke_party/internal/storage"
	"karaoke_party/internal/tasks"
	"karaoke_party/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @Title						Общая очередь караоке-вечеринки
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	key := os.Getenv("ENV_CHEK")
	if key == "" {
		fmt.Println("Подключение к .env")
		err := godotenv.Load()
		if err != nil {
			log.Fatal("Ошибка получения .env")
		}
	}

	storage.ConnectDatabase()

	if err := storage.DB.AutoMigrate(&models.User{}, &models.Party{}, &models.QueueItem{}, &models.Participant{}); err != nil {
		log.Fatal("Ошибка при миграции... ", err.Error())
	}

	storage.InitRedis()

	tasks.InitScheduler()

	go ws.HubInstance.Run()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handlers.Login)
		authGroup.POST("/register", handlers.Register)
		authGroup.POST("/refresh", handlers.RefreshToken)
	}

	r.GET("/api/songs/search", handlers.SearchSongsHandler)

	// Гостевые маршруты: вход по коду вечеринки, без авторизации
	parties := r.Group("/api/parties")
	{
		parties.GET("/:code", handlers.GetPartySnapshotHandler)
		parties.POST("/:code/join", handlers.JoinPartyHandler)
		parties.POST("/:code/heartbeat", handlers.HeartbeatHandler)
		parties.GET("/:code/participants", handlers.ActiveParticipantsHandler)
		parties.GET("/:code/ws", ws.PartyWebSocketHandler)
		parties.POST("/:code/items", handlers.AddItemHandler)
		parties.DELETE("/:code/items/:itemID", handlers.RemoveItemHandler)
		parties.POST("/:code/skip-timer", handlers.SkipTimerHandler)
	}

	// Маршруты организатора
	host := r.Group("/api/parties", auth.AuthMiddleware())
	{
		host.POST("", handlers.CreatePartyHandler)
		host.POST("/:code/start", handlers.StartPartyHandler)
		host.POST("/:code/intermission", handlers.IntermissionHandler)
		host.POST("/:code/close", handlers.ClosePartyHandler)
		host.POST("/:code/fairness", handlers.ToggleFairnessHandler)
		host.POST("/:code/manual-sort", handlers.ToggleManualSortHandler)
		host.POST("/:code/playback-disabled", handlers.TogglePlaybackDisabledHandler)
		host.POST("/:code/reorder", handlers.ReorderHandler)
		host.POST("/:code/items/:itemID/priority", handlers.ToggleItemPriorityHandler)
		host.POST("/:code/play", handlers.PlayHandler)
		host.POST("/:code/pause", handlers.PauseHandler)
		host.POST("/:code/advance", handlers.AdvanceHandler)
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal("Ошибка запуска сервера...", err.Error())
	}
}
