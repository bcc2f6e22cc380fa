package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tumortrace/classification-service/internal/auth"
	"github.com/tumortrace/classification-service/internal/handlers"
	"github.com/tumortrace/classification-service/internal/telemetry"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Payments              handlers.PaymentWorkflow
	Images                handlers.ImageWorkflow
	Accounts              handlers.AccountManager
	Google                handlers.GoogleAuthenticator
	Tokens                *auth.TokenManager
	CORSOrigins           []string
	FrontendURL           string
	RequirePaymentSession bool
	SecureCookies         bool
}

func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.MaxMultipartMemory = 10 << 20

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := r.Group("/api")
	apiGroup.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	requireSession := d.Tokens.RequireSession()

	// Payment routes
	paymentHandler := handlers.NewPaymentHandler(d.Payments, d.RequirePaymentSession)
	stateHandler := handlers.NewPaymentStateHandler(d.Payments)
	payment := apiGroup.Group("/payment")
	{
		public := payment.Group("")
		public.Use(d.Tokens.OptionalSession(), SanitizeJSON())
		public.POST("/create-order", paymentHandler.CreateOrder)
		public.POST("/verify-payment", paymentHandler.VerifyPayment)
		public.POST("/save-classification", paymentHandler.SaveClassification)

		payment.GET("/state/:fileId", requireSession, stateHandler.GetPaymentState)
		payment.GET("/classifications", requireSession, stateHandler.ListClassifications)
		payment.GET("/:paymentId", requireSession, stateHandler.GetPayment)
	}

	// Image and ML routes
	uploadHandler := handlers.NewUploadHandler(d.Images)
	mlHandler := handlers.NewMLHandler(d.Images)
	apiGroup.POST("/upload", requireSession, uploadHandler.Upload)
	apiGroup.POST("/delete", requireSession, uploadHandler.Delete)
	ml := apiGroup.Group("/ml", requireSession)
	{
		ml.POST("/result", mlHandler.SaveResult)
		ml.POST("/analyze", mlHandler.Analyze)
		ml.POST("/classification", mlHandler.SaveClassification)
	}

	// Account routes
	userHandler := handlers.NewUserHandler(d.Accounts, d.Tokens, d.SecureCookies)
	user := apiGroup.Group("/user")
	{
		user.POST("/register", SanitizeJSON(), userHandler.Register)
		user.POST("/login", SanitizeJSON(), userHandler.Login)
		user.POST("/logout", userHandler.Logout)
		user.GET("/current", requireSession, userHandler.Current)
		user.PUT("/update", requireSession, SanitizeJSON(), userHandler.Update)
		user.DELETE("/delete", requireSession, userHandler.Delete)
	}

	authHandler := handlers.NewAuthHandler(d.Google, d.Accounts, d.FrontendURL, d.SecureCookies)
	apiGroup.GET("/auth/google", authHandler.GoogleStart)
	apiGroup.GET("/auth/google/callback", authHandler.GoogleCallback)

	return r
}
