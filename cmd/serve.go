package cmd

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jjenkins/statehouse/internal/handlers"
	"github.com/jjenkins/statehouse/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only bill API server",
	Long:  `Start a JSON API server over the ingested bill data and the jurisdiction completion log.`,
	Run: func(cmd *cobra.Command, args []string) {
		if servePort == "" {
			servePort = viper.GetString("serve.port")
		}

		db, err := store.NewDB(viper.GetString("database.url"))
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		// Initialize stores
		billStore := store.NewBillStore(db)
		progressStore := store.NewProgressStore(db)

		app := fiber.New(fiber.Config{
			AppName: "Statehouse",
		})

		app.Use(logger.New())

		// Routes
		app.Get("/bills", handlers.BillsHandler(billStore))
		app.Get("/bills/:external_id", handlers.BillDetailHandler(billStore))
		app.Get("/bills/:external_id/actions", handlers.BillActionsHandler(billStore))
		app.Get("/progress", handlers.ProgressHandler(progressStore))

		log.Printf("Starting server on :%s", servePort)
		if err := app.Listen(":" + servePort); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to run the server on (default from config)")
}
