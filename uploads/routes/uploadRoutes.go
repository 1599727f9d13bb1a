package routes

import (
	bleverepos "course-directory-backend/bleve/repositories"
	"course-directory-backend/uploads/controllers"
	"course-directory-backend/uploads/repositories"
	"course-directory-backend/uploads/services"
	"course-directory-backend/utils"

	"github.com/gofiber/fiber/v2"
)

func UploadRouterInit(
	app *fiber.App,
	processor *services.UploadProcessor,
	revalidator *services.RevalidationService,
	uploadRepository repositories.UploadRepository,
	publishRepository repositories.PublishRepository,
	bleveRepository bleverepos.BleveRepositoryInterface,
	storage utils.FileStorage,
) {
	uploadController := &controllers.UploadController{
		Processor:   processor,
		Revalidator: revalidator,
		UploadRepo:  uploadRepository,
		PublishRepo: publishRepository,
		BleveRepo:   bleveRepository,
		Storage:     storage,
	}

	uploadRoutes := app.Group("/uploads")
	uploadRoutes.Post("/", uploadController.StartUploadController)
	uploadRoutes.Get("/:id", uploadController.GetUploadController)
	uploadRoutes.Get("/:id/rows", uploadController.GetRowsController)
	uploadRoutes.Put("/:id/rows/:rowNumber", uploadController.UpdateRowController)
	uploadRoutes.Delete("/:id/rows/:rowNumber", uploadController.DeleteRowController)
	uploadRoutes.Post("/:id/revalidate", uploadController.RevalidateUploadController)
	uploadRoutes.Post("/:id/publish", uploadController.PublishUploadController)
	uploadRoutes.Post("/:id/abandon", uploadController.AbandonUploadController)
	uploadRoutes.Get("/:id/errors/download", uploadController.DownloadErrorReportController)
	uploadRoutes.Get("/:id/download", uploadController.DownloadFileController)

	providerRoutes := app.Group("/providers")
	providerRoutes.Post("/:providerId/uploads", uploadController.StartUploadController)
	providerRoutes.Get("/:providerId/uploads/latest", uploadController.GetLatestUploadController)
}
