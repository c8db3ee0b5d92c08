package routes

import (
	"insureflow/config"
	"insureflow/controllers"
	"insureflow/middleware"
	"insureflow/services"
	"insureflow/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin.Engine and registers all routes. Redis and the
// database are taken from the utils holders set in main.
func SetupRouter(cfg *config.Config) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.RecoveryMiddleware())

	// CORS before routes; the record API is consumed cross-origin
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Authorization", "Content-Type"},
	}))

	rdb := utils.GetRedis()
	db := utils.GetDB()

	store := services.NewRedisRecordStore(rdb)
	sessions := services.NewRedisSessionStore(rdb)
	machine := services.NewFlowMachine(cfg.FlowVariant, services.DefaultDocCount)
	pollers := services.NewPollerRegistry()
	drafts := services.NewDraftWriter(rdb, services.DraftDebounce)
	vision := services.NewVisionClient(cfg)

	recordController := controllers.NewRecordController(store)
	historyController := controllers.NewHistoryController(db)
	flowController := controllers.NewFlowController(machine, sessions, store, pollers, rdb, cfg.DevMode)
	adminController := controllers.NewAdminController(drafts, store, db, cfg)
	visionController := controllers.NewVisionController(vision)

	api := r.Group("/api")
	{
		api.GET("/get", recordController.Get)
		api.POST("/save", recordController.Save)

		api.GET("/history", historyController.Handle)
		api.POST("/history", historyController.Handle)

		flow := api.Group("/flow")
		{
			flow.POST("/start", flowController.Start)
			flow.GET("/:sid", flowController.Get)
			flow.DELETE("/:sid", flowController.Teardown)
			flow.POST("/:sid/read-doc", flowController.ReadDoc)
			flow.POST("/:sid/advance", flowController.Advance)
			flow.POST("/:sid/skip-to-check", flowController.SkipToCheck)
			flow.POST("/:sid/verify-phone", flowController.VerifyPhone)
			flow.POST("/:sid/send-otp", flowController.SendOTP)
			flow.POST("/:sid/confirm-otp", flowController.ConfirmOTP)
			flow.POST("/:sid/proceed", flowController.Proceed)
			flow.POST("/:sid/signature", flowController.Signature)
			flow.POST("/:sid/channel", flowController.Channel)
			flow.GET("/:sid/alipay-url", flowController.AlipayURL)
		}

		admin := api.Group("/admin")
		{
			admin.POST("/draft", adminController.SaveDraft)
			admin.GET("/draft", adminController.GetDraft)
			admin.POST("/share", adminController.Share)
			admin.GET("/share/qr", adminController.ShareQR)
		}

		visionGroup := api.Group("/vision")
		{
			visionGroup.POST("/idcard", visionController.IDCard)
			visionGroup.POST("/vehicle", visionController.Vehicle)
		}
	}

	return r
}
