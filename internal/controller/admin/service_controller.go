package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lshigami/roleplay-sim/internal/controller"
	"github.com/lshigami/roleplay-sim/internal/dto"
	"github.com/lshigami/roleplay-sim/internal/service"
	"github.com/rs/zerolog/log"
)

type ServiceController struct {
	adminService service.AdminServiceService
}

func NewServiceController(adminService service.AdminServiceService) *ServiceController {
	return &ServiceController{adminService: adminService}
}

// CreateService godoc
// @Summary (Admin) Create a roleplay service
// @Description Admin creates a service with its levels, time limits and answer keys.
// @Tags Admin - Services
// @Accept json
// @Produce json
// @Param service_data body dto.ServiceCreateDTO true "Service with at least one level"
// @Success 201 {object} dto.ServiceResponseDTO "Service created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid input data (missing fields, malformed sections, duplicate questions)"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/services [post]
func (c *ServiceController) CreateService(ctx *gin.Context) {
	var req dto.ServiceCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Admin CreateService: Failed to bind JSON")
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	resp, err := c.adminService.CreateService(ctx.Request.Context(), req)
	if err != nil {
		controller.RespondError(ctx, err, "Failed to create service")
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}
