package routes

import (
	"course-directory-backend/reference/controllers"
	"course-directory-backend/reference/repositories"

	"github.com/gofiber/fiber/v2"
)

func ReferenceRouterInit(
	app *fiber.App,
	referenceRepository repositories.ReferenceRepository,
) {
	referenceController := &controllers.ReferenceController{
		ReferenceRepo: referenceRepository,
	}

	referenceRoutes := app.Group("/reference")
	referenceRoutes.Get("/regions", referenceController.GetRegionsController)
	referenceRoutes.Get("/standards", referenceController.GetStandardsController)
	referenceRoutes.Get("/frameworks", referenceController.GetFrameworksController)

	providerRoutes := app.Group("/providers")
	providerRoutes.Get("/:providerId/venues", referenceController.GetVenuesController)
}
