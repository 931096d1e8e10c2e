package handler

import (
	"campus_api/internal/model"
	"campus_api/internal/schema"
	"campus_api/internal/service"

	"github.com/gin-gonic/gin"
)

// SchoolHandler exposes the school management resources. Reads are public,
// writes require an admin token.
type SchoolHandler struct {
	resources *ResourceHandler
	reg       *schema.Registry
}

func NewSchoolHandler(resources *ResourceHandler, reg *schema.Registry) *SchoolHandler {
	return &SchoolHandler{resources: resources, reg: reg}
}

var schoolPayloads = []struct {
	entity string
	newReq func() model.Recorder
}{
	{schema.Formations, func() model.Recorder { return &model.FormationRequest{} }},
	{schema.Niveaux, func() model.Recorder { return &model.NiveauRequest{} }},
	{schema.Unites, func() model.Recorder { return &model.UniteRequest{} }},
	{schema.Matieres, func() model.Recorder { return &model.MatiereRequest{} }},
	{schema.Students, func() model.Recorder { return &model.StudentRequest{} }},
	{schema.Teachers, func() model.Recorder { return &model.TeacherRequest{} }},
	{schema.Parents, func() model.Recorder { return &model.ParentRequest{} }},
	{schema.Admins, func() model.Recorder { return &model.AdminRequest{} }},
	{schema.Evaluations, func() model.Recorder { return &model.EvaluationRequest{} }},
	{schema.Pointages, func() model.Recorder { return &model.PointageRequest{} }},
	{schema.PresencesStudents, func() model.Recorder { return &model.StudentPresenceRequest{} }},
	{schema.PresencesTeachers, func() model.Recorder { return &model.TeacherPresenceRequest{} }},
}

// RegisterSchoolRoutes registers school routes
func (h *SchoolHandler) RegisterSchoolRoutes(rg *gin.RouterGroup, gate Gate) {
	school := rg.Group("/school")
	admin := gate(model.RoleAdmin)

	for _, p := range schoolPayloads {
		entity := h.reg.MustLookup(p.entity)
		g := school.Group("/" + entity.Name)
		g.GET("", h.resources.List(entity))
		g.GET("/:id", h.resources.Get(entity))
		g.POST("", chain(admin, h.resources.Create(entity, p.newReq))...)
		g.PUT("/:id", chain(admin, h.resources.Update(entity, p.newReq))...)
		g.DELETE("/:id", chain(admin, h.resources.Delete(entity))...)
	}

	evaluations := h.reg.MustLookup(schema.Evaluations)
	g := school.Group("/" + evaluations.Name)
	g.GET("/student/:studentId/matiere/:matiereId", h.resources.ListScoped(evaluations, func(c *gin.Context) service.Scope {
		return service.Scope{"student": c.Param("studentId"), "matiere": c.Param("matiereId")}
	}))
	g.GET("/teacher/:teacherId/matiere/:matiereId", h.resources.ListScoped(evaluations, func(c *gin.Context) service.Scope {
		return service.Scope{"teacher": c.Param("teacherId"), "matiere": c.Param("matiereId")}
	}))
}
